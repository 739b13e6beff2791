package batch

import (
	"fmt"
	"path/filepath"
	"time"
)

// Output file names inside Config.OutputDir
const (
	ProgressFileName = "progress.json"
	ResultsFileName  = "invoice_data.csv"
	WorkbookFileName = "invoice_data.xlsx"
	HistoryFileName  = "history.db"
	LogFileName      = "processing.log"
)

const (
	DefaultRequestsPerMinute = 15
	DefaultMaxAttempts       = 3
	DefaultRetryDelay        = 60 * time.Second

	// FailureWarnThreshold is the number of failed runs after which an item
	// gets a warning in the log. The item is still retried.
	FailureWarnThreshold = 3
)

// Config holds the settings of one batch run
type Config struct {
	InputDir  string
	OutputDir string
	// MaxItems caps the number of items processed this run; 0 means all
	MaxItems          int
	RequestsPerMinute int
	MaxAttempts       int
	// RetryDelay is used when the provider does not suggest a delay
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with the default quota settings
func DefaultConfig(inputDir, outputDir string) Config {
	return Config{
		InputDir:          inputDir,
		OutputDir:         outputDir,
		RequestsPerMinute: DefaultRequestsPerMinute,
		MaxAttempts:       DefaultMaxAttempts,
		RetryDelay:        DefaultRetryDelay,
	}
}

// Validate reports configuration values the run cannot work with
func (c Config) Validate() error {
	switch {
	case c.InputDir == "":
		return fmt.Errorf("%w: input directory is required", ErrInvalidConfig)
	case c.OutputDir == "":
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	case c.MaxItems < 0:
		return fmt.Errorf("%w: max items must not be negative", ErrInvalidConfig)
	case c.RequestsPerMinute <= 0:
		return fmt.Errorf("%w: requests per minute must be positive", ErrInvalidConfig)
	case c.MaxAttempts <= 0:
		return fmt.Errorf("%w: max attempts must be positive", ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ProgressPath returns the path of the progress ledger
func (c Config) ProgressPath() string {
	return filepath.Join(c.OutputDir, ProgressFileName)
}

// ResultsPath returns the path of the CSV result file
func (c Config) ResultsPath() string {
	return filepath.Join(c.OutputDir, ResultsFileName)
}

// WorkbookPath returns the path of the XLSX export
func (c Config) WorkbookPath() string {
	return filepath.Join(c.OutputDir, WorkbookFileName)
}

// HistoryPath returns the path of the item history database
func (c Config) HistoryPath() string {
	return filepath.Join(c.OutputDir, HistoryFileName)
}

// LogPath returns the path of the run log
func (c Config) LogPath() string {
	return filepath.Join(c.OutputDir, LogFileName)
}
