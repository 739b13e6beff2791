package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/zombor/invoice-batch/internal/scanning"
)

// Orchestrator drives a resumable batch: it enumerates the input, skips what
// the ledger already holds and pushes the rest through extraction one item
// at a time, persisting after every item
type Orchestrator struct {
	cfg         Config
	source      Source
	ledger      Ledger
	store       Store
	history     History
	retrier     *Retrier
	limiter     *Limiter
	idGenerator IDGenerator
	timeSource  TimeSource
	logger      *slog.Logger
}

// NewOrchestrator creates a new Orchestrator with real timers, UUID run IDs
// and the wall clock. history may be nil.
func NewOrchestrator(cfg Config, scanner scanning.Scanner, source Source, ledger Ledger, store Store, history History, logger *slog.Logger) (*Orchestrator, error) {
	return NewOrchestratorWithDeps(cfg, scanner, source, ledger, store, history, timerSleeper{}, &defaultIDGenerator{}, &defaultTimeSource{}, logger)
}

// NewOrchestratorWithDeps creates a new Orchestrator with custom dependencies for testing
func NewOrchestratorWithDeps(cfg Config, scanner scanning.Scanner, source Source, ledger Ledger, store Store, history History, sleeper Sleeper, idGen IDGenerator, timeSrc TimeSource, logger *slog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	limiter, err := NewLimiterWithSleeper(cfg.RequestsPerMinute, sleeper)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:         cfg,
		source:      source,
		ledger:      ledger,
		store:       store,
		history:     history,
		retrier:     NewRetrierWithSleeper(scanner, source, cfg.MaxAttempts, cfg.RetryDelay, sleeper, logger),
		limiter:     limiter,
		idGenerator: idGen,
		timeSource:  timeSrc,
		logger:      logger,
	}, nil
}

// Interval returns the pause enforced between items
func (o *Orchestrator) Interval() time.Duration {
	return o.limiter.Interval()
}

// Plan enumerates the input and subtracts the completed identifiers,
// keeping enumeration order. It writes nothing.
func (o *Orchestrator) Plan() (*Plan, error) {
	items, err := o.source.List()
	if err != nil {
		return nil, fmt.Errorf("enumerating input: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInput, o.cfg.InputDir)
	}

	completed, err := o.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}

	plan := &Plan{
		Enumerated: len(items),
		Completed:  completed,
	}
	done := toSet(completed)

	// Rows stored after the last ledger save (crash between the two writes)
	// count as completed
	stored, err := o.store.Files()
	if err != nil {
		o.logger.Warn("Could not read stored results, skipping reconciliation", "error", err)
	}
	for _, name := range stored {
		if _, ok := done[name]; !ok {
			done[name] = struct{}{}
			plan.Completed = append(plan.Completed, name)
			plan.Recovered = append(plan.Recovered, name)
		}
	}

	for _, item := range items {
		if _, ok := done[item.Name]; !ok {
			plan.Remaining = append(plan.Remaining, item)
		}
	}
	if o.cfg.MaxItems > 0 && len(plan.Remaining) > o.cfg.MaxItems {
		plan.Remaining = plan.Remaining[:o.cfg.MaxItems]
	}

	return plan, nil
}

// Run processes every remaining item strictly sequentially. Per-item failures
// are counted, never returned. Only a missing input, a corrupt ledger or a
// failed write ends the run with an error. Cancelling ctx stops the run
// between items; the summary then has Interrupted set.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	start := o.timeSource.Now()
	runID := o.idGenerator.Generate()
	logger := o.logger.With("run_id", runID)

	plan, err := o.Plan()
	if err != nil {
		return nil, err
	}

	processed := slices.Clone(plan.Completed)
	if len(plan.Recovered) > 0 {
		logger.Warn("Recovered results missing from the progress ledger", "files", plan.Recovered)
		if err := o.ledger.Save(processed); err != nil {
			return nil, fmt.Errorf("%w: saving recovered progress: %w", ErrPersist, err)
		}
	}
	if len(plan.Completed) > 0 {
		logger.Info("Resuming", "already_processed", len(plan.Completed))
	}

	summary := &RunSummary{
		RunID:     runID,
		StartedAt: start,
		Total:     len(plan.Remaining),
		Skipped:   len(plan.Completed),
	}
	total := len(plan.Remaining)

	logger.Info("Starting invoice processing",
		"files_to_process", total,
		"estimated", plan.Estimate(o.limiter.Interval()),
	)

	for idx, item := range plan.Remaining {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		logger.Info("Processing", "index", idx+1, "total", total, "file", item.Name)

		result := o.retrier.Process(ctx, item)
		if result.Status == StatusInterrupted {
			logger.Warn("Interrupted, item not recorded", "file", item.Name)
			summary.Interrupted = true
			break
		}

		if result.Status == StatusSucceeded {
			// The row goes first so the ledger never names an item without a stored result
			if err := o.store.Append([]*scanning.InvoiceData{result.Invoice}); err != nil {
				summary.Elapsed = o.timeSource.Now().Sub(start)
				return summary, fmt.Errorf("%w: storing result for %s: %w", ErrPersist, item.Name, err)
			}
			processed = append(processed, item.Name)
			summary.Succeeded++
			logger.Info("Successfully processed",
				"file", item.Name,
				"category", result.Invoice.Category,
				"amount", result.Invoice.TotalAmount,
				"attempts", result.Attempts,
			)
		} else {
			summary.Failed++
			o.logFailure(logger, result)
		}

		if err := o.ledger.Save(processed); err != nil {
			summary.Elapsed = o.timeSource.Now().Sub(start)
			return summary, fmt.Errorf("%w: saving progress after %s: %w", ErrPersist, item.Name, err)
		}

		o.recordHistory(logger, runID, result)

		if idx < total-1 {
			logger.Info("Waiting (rate limiting)", "delay", o.limiter.Interval())
			if err := o.limiter.Wait(ctx); err != nil {
				summary.Interrupted = true
				break
			}
		}
	}

	summary.Elapsed = o.timeSource.Now().Sub(start)

	if o.history != nil {
		if err := o.history.RecordRun(summary); err != nil {
			logger.Warn("Failed to record run history", "error", err)
		}
	}

	logger.Info("Processing complete",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed,
		"interrupted", summary.Interrupted,
	)

	return summary, nil
}

func (o *Orchestrator) logFailure(logger *slog.Logger, result ItemResult) {
	attrs := []any{
		"file", result.Item.Name,
		"status", result.Status,
		"attempts", result.Attempts,
		"error", result.Err,
	}
	var malformed *scanning.MalformedOutputError
	if errors.As(result.Err, &malformed) {
		attrs = append(attrs, "response", malformed.Snippet)
	}
	logger.Error("Failed to process invoice", attrs...)
}

// recordHistory is best effort: the audit trail never fails the batch
func (o *Orchestrator) recordHistory(logger *slog.Logger, runID string, result ItemResult) {
	if o.history == nil {
		return
	}
	entry, err := o.history.RecordItem(runID, result, o.timeSource.Now())
	if err != nil {
		logger.Warn("Failed to record item history", "file", result.Item.Name, "error", err)
		return
	}
	if entry.Failures >= FailureWarnThreshold {
		logger.Warn("Invoice keeps failing and will be retried on the next run; fix or remove the file",
			"file", entry.Name,
			"failed_runs", entry.Failures,
			"last_error", entry.LastError,
		)
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
