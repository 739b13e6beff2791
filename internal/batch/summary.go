package batch

import "time"

// RunSummary reports the outcome of one orchestrator run
type RunSummary struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Total       int           `json:"total"`   // items scheduled this run
	Skipped     int           `json:"skipped"` // items already completed by earlier runs
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Elapsed     time.Duration `json:"elapsed"`
	Interrupted bool          `json:"interrupted"`
}

// Plan is the work a run would do, computed before any extraction
type Plan struct {
	Enumerated int
	Completed  []string
	Recovered  []string // stored rows the ledger did not list yet
	Remaining  []WorkItem
}

// Estimate returns the minimum run time imposed by the rate limiter
func (p *Plan) Estimate(interval time.Duration) time.Duration {
	if len(p.Remaining) <= 1 {
		return 0
	}
	return time.Duration(len(p.Remaining)-1) * interval
}
