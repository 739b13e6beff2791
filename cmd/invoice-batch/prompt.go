package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zombor/invoice-batch/internal/batch"
)

// prompter asks the operator questions on the terminal
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

type answer struct {
	line string
	err  error
}

// readLine returns early with the context error when ctx is done. The pending
// read is abandoned; the process is about to exit.
func (p *prompter) readLine(ctx context.Context, question string) (string, error) {
	fmt.Fprint(p.out, question)
	done := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		done <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-done:
		if a.err != nil && (a.err != io.EOF || a.line == "") {
			return "", fmt.Errorf("reading answer: %w", a.err)
		}
		return strings.TrimSpace(a.line), nil
	}
}

// apiKey asks for the Gemini API key when none was configured
func (p *prompter) apiKey(ctx context.Context) (string, error) {
	fmt.Fprintln(p.out, "GEMINI_API_KEY not found in environment variables")
	key, err := p.readLine(ctx, "Please enter your Gemini API key: ")
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("API key is required")
	}
	return key, nil
}

// testMode asks whether to process only the first few files
func (p *prompter) testMode(ctx context.Context, limit int) (bool, error) {
	reply, err := p.readLine(ctx, fmt.Sprintf("\nTest mode (process only first %d files)? [y/N]: ", limit))
	if err != nil {
		return false, err
	}
	reply = strings.ToLower(reply)
	return reply == "y" || reply == "yes", nil
}

// confirm waits for ENTER. Any answer starting with "n" cancels.
func (p *prompter) confirm(ctx context.Context) (bool, error) {
	reply, err := p.readLine(ctx, "\nPress ENTER to start or Ctrl+C to cancel...")
	if err != nil {
		return false, err
	}
	return !strings.HasPrefix(strings.ToLower(reply), "n"), nil
}

func printBanner(out io.Writer) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(out, "\n%s\nInvoice Processing System\n%s\n\n", rule, rule)
}

func printPlan(out io.Writer, cfg batch.Config, plan *batch.Plan, interval time.Duration) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintf(out, "  Input folder:  %s\n", cfg.InputDir)
	fmt.Fprintf(out, "  Output folder: %s\n", cfg.OutputDir)
	fmt.Fprintf(out, "  Rate limit:    %d requests/minute (%s between invoices)\n", cfg.RequestsPerMinute, interval)

	fmt.Fprintf(out, "\n%s\n", rule)
	fmt.Fprintf(out, "Found %d invoices, %d already processed\n", plan.Enumerated, len(plan.Completed))
	if cfg.MaxItems > 0 {
		fmt.Fprintf(out, "Ready to process %d invoices (limited to %d)\n", len(plan.Remaining), cfg.MaxItems)
	} else {
		fmt.Fprintf(out, "Ready to process %d invoices\n", len(plan.Remaining))
	}
	fmt.Fprintf(out, "Estimated time: at least %s\n", plan.Estimate(interval).Round(time.Second))
	fmt.Fprintln(out, rule)
}

func printSummary(out io.Writer, summary *batch.RunSummary) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(out, "\n%s\n", rule)
	fmt.Fprintln(out, "Processing complete")
	fmt.Fprintf(out, "  Succeeded: %d\n", summary.Succeeded)
	fmt.Fprintf(out, "  Failed:    %d\n", summary.Failed)
	fmt.Fprintf(out, "  Skipped:   %d (already processed)\n", summary.Skipped)
	fmt.Fprintf(out, "  Elapsed:   %s\n", summary.Elapsed.Round(time.Second))
	fmt.Fprintln(out, rule)
}
