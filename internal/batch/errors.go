package batch

import "errors"

// Run-level errors. Anything else that goes wrong with a single invoice is
// counted as a failure and the batch moves on.
var (
	ErrNoInput       = errors.New("no invoice images found")
	ErrLedgerCorrupt = errors.New("progress ledger is corrupt")
	ErrPersist       = errors.New("persisting batch state")
	ErrInvalidConfig = errors.New("invalid batch configuration")
)
