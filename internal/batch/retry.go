package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zombor/invoice-batch/internal/scanning"
)

// Status tags the terminal outcome of one work item
type Status string

const (
	StatusSucceeded      Status = "succeeded"
	StatusQuotaExhausted Status = "quota_exhausted"
	StatusMalformed      Status = "malformed_output"
	StatusUnexpected     Status = "unexpected"
	StatusInterrupted    Status = "interrupted"
)

// ItemResult is the outcome of driving one work item through extraction and parsing
type ItemResult struct {
	Item     WorkItem
	Status   Status
	Invoice  *scanning.InvoiceData // set only when Status is StatusSucceeded
	Err      error
	Attempts int // upstream calls made
}

// Retrier wraps the extraction call with bounded retries on quota exhaustion
type Retrier struct {
	scanner      scanning.Scanner
	source       Source
	sleeper      Sleeper
	maxAttempts  int
	defaultDelay time.Duration
	logger       *slog.Logger
}

// NewRetrier creates a new Retrier sleeping on a real timer
func NewRetrier(scanner scanning.Scanner, source Source, maxAttempts int, defaultDelay time.Duration, logger *slog.Logger) *Retrier {
	return NewRetrierWithSleeper(scanner, source, maxAttempts, defaultDelay, timerSleeper{}, logger)
}

// NewRetrierWithSleeper creates a new Retrier with a custom sleeper for testing
func NewRetrierWithSleeper(scanner scanning.Scanner, source Source, maxAttempts int, defaultDelay time.Duration, sleeper Sleeper, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Retrier{
		scanner:      scanner,
		source:       source,
		sleeper:      sleeper,
		maxAttempts:  maxAttempts,
		defaultDelay: defaultDelay,
		logger:       logger,
	}
}

// Process reads the item's image and asks the scanner to extract it, at most
// maxAttempts times. Only quota exhaustion is retried. The outcome is always
// returned as an ItemResult.
func (r *Retrier) Process(ctx context.Context, item WorkItem) ItemResult {
	result := ItemResult{Item: item}

	imageData, err := r.source.Read(item)
	if err != nil {
		result.Status = StatusUnexpected
		result.Err = err
		return result
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		result.Attempts = attempt

		text, err := r.scanner.ScanInvoice(ctx, imageData, item.ContentType)
		if err != nil {
			if ctx.Err() != nil {
				result.Status = StatusInterrupted
				result.Err = ctx.Err()
				return result
			}

			var quota *scanning.QuotaExhaustedError
			if !errors.As(err, &quota) {
				result.Status = StatusUnexpected
				result.Err = err
				return result
			}

			if attempt == r.maxAttempts {
				result.Status = StatusQuotaExhausted
				result.Err = fmt.Errorf("quota exceeded after %d attempts: %w", r.maxAttempts, err)
				return result
			}

			delay := quota.RetryAfter
			if delay <= 0 {
				delay = r.defaultDelay
			}
			r.logger.Warn("Quota exceeded, retrying",
				"file", item.Name,
				"delay", delay,
				"attempt", attempt,
				"max_attempts", r.maxAttempts,
			)
			if err := r.sleeper.Sleep(ctx, delay); err != nil {
				result.Status = StatusInterrupted
				result.Err = err
				return result
			}
			continue
		}

		invoice, err := scanning.ParseInvoice(item.Name, text)
		if err != nil {
			result.Status = StatusMalformed
			result.Err = err
			return result
		}

		result.Status = StatusSucceeded
		result.Invoice = invoice
		return result
	}

	// unreachable: the final attempt always returns
	result.Status = StatusQuotaExhausted
	return result
}
