package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/invoice-batch/internal/batch"
	"github.com/zombor/invoice-batch/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const (
	testModeFiles = 5
	exitInterrupt = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			return 0
		}
	}

	// A missing .env is fine; variables already set win
	_ = godotenv.Load()

	fs := ff.NewFlagSet("invoice-batch")
	var (
		inputDir    = fs.StringLong("input", "invoices", "Folder containing invoice images")
		outputDir   = fs.StringLong("output", "output", "Folder for progress, results and logs")
		maxFiles    = fs.IntLong("max-files", 0, "Process at most this many invoices (0 = all)")
		testMode    = fs.BoolLong("test", fmt.Sprintf("Test mode: process only the first %d invoices", testModeFiles))
		rpm         = fs.IntLong("rpm", batch.DefaultRequestsPerMinute, "Requests per minute allowed by the API quota")
		maxAttempts = fs.IntLong("max-attempts", batch.DefaultMaxAttempts, "Attempts per invoice when the quota is exhausted")
		retryDelay  = fs.DurationLong("retry-delay", batch.DefaultRetryDelay, "Wait between attempts when the API suggests none")
		scannerType = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		assumeYes   = fs.BoolLong("yes", "Start without asking for confirmation")
		exportXLSX  = fs.BoolLong("xlsx", "Export the results to an XLSX workbook after the run")
		_           = fs.StringLong("config", "", "Config file (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_BATCH"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithConfigAllowMissingFile(),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		return 0
	}

	// Ctrl+C during a prompt and during the run both end with exitInterrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printBanner(os.Stdout)
	prompt := newPrompter(os.Stdin, os.Stdout)

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("Failed to create output folder", "path", *outputDir, "error", err)
		return 1
	}

	cfg := batch.DefaultConfig(*inputDir, *outputDir)
	cfg.MaxItems = *maxFiles
	cfg.RequestsPerMinute = *rpm
	cfg.MaxAttempts = *maxAttempts
	cfg.RetryDelay = *retryDelay
	if *testMode && cfg.MaxItems == 0 {
		cfg.MaxItems = testModeFiles
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	logger, logFile, err := newLogger(cfg.LogPath(), os.Stderr)
	if err != nil {
		slog.Error("Failed to open log file", "error", err)
		return 1
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	// Initialize scanner based on type
	var scanner scanning.Scanner
	switch *scannerType {
	case "gemini":
		// Get Gemini API key from flag, environment or the terminal
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" && !*assumeYes {
			apiKey, err = prompt.apiKey(ctx)
			if errors.Is(err, context.Canceled) {
				return interrupted()
			}
			if err != nil {
				logger.Error("Gemini API key is required", "error", err)
				return 1
			}
		}
		if apiKey == "" {
			logger.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			return 1
		}
		logger.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini", "error", err)
			return 1
		}
	case "ollama":
		logger.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			logger.Error("Failed to initialize Ollama", "error", err)
			return 1
		}
	default:
		logger.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini or ollama")
		return 1
	}
	defer scanner.Close()

	// Initialize history; the lock also keeps a second process off this output folder
	history, err := batch.NewBoltHistory(cfg.HistoryPath())
	if err != nil {
		logger.Error("Failed to open history database (is another run using this output folder?)", "error", err)
		return 1
	}
	defer history.Close()

	source, err := batch.NewDirSource(cfg.InputDir)
	if err != nil {
		logger.Error("Failed to open input folder", "error", err)
		return 1
	}

	if !*assumeYes && !*testMode && *maxFiles == 0 {
		yes, err := prompt.testMode(ctx, testModeFiles)
		if errors.Is(err, context.Canceled) {
			return interrupted()
		}
		if err != nil {
			logger.Error("Failed to read answer", "error", err)
			return 1
		}
		if yes {
			cfg.MaxItems = testModeFiles
		}
	}

	orchestrator, err := batch.NewOrchestrator(cfg, scanner, source,
		batch.NewJSONLedger(cfg.ProgressPath()),
		batch.NewCSVStore(cfg.ResultsPath()),
		history, logger)
	if err != nil {
		logger.Error("Failed to initialize batch", "error", err)
		return 1
	}

	plan, err := orchestrator.Plan()
	if err != nil {
		logger.Error("Cannot start processing", "error", err)
		return 1
	}
	printPlan(os.Stdout, cfg, plan, orchestrator.Interval())

	if len(plan.Remaining) == 0 && len(plan.Recovered) == 0 {
		fmt.Println("\nAll invoices are already processed.")
		return exportWorkbook(*exportXLSX, cfg, logger)
	}

	if !*assumeYes {
		start, err := prompt.confirm(ctx)
		if errors.Is(err, context.Canceled) {
			return interrupted()
		}
		if err != nil {
			logger.Error("Failed to read answer", "error", err)
			return 1
		}
		if !start {
			fmt.Println("Cancelled.")
			return 0
		}
	}

	summary, err := orchestrator.Run(ctx)
	if summary != nil {
		printSummary(os.Stdout, summary)
	}
	if err != nil {
		logger.Error("Processing aborted", "error", err)
		return 1
	}
	if summary.Interrupted {
		fmt.Println("\n\nProcessing interrupted by user")
		logger.Warn("Processing interrupted by user", "succeeded", summary.Succeeded)
		return exitInterrupt
	}

	return exportWorkbook(*exportXLSX, cfg, logger)
}

func interrupted() int {
	fmt.Println("\n\nProcessing interrupted by user")
	return exitInterrupt
}

func exportWorkbook(enabled bool, cfg batch.Config, logger *slog.Logger) int {
	if !enabled {
		return 0
	}
	if _, err := batch.ExportXLSX(cfg.ResultsPath(), cfg.WorkbookPath(), logger); err != nil {
		logger.Error("Failed to export workbook", "error", err)
		return 1
	}
	fmt.Printf("Workbook written to %s\n", cfg.WorkbookPath())
	return 0
}
