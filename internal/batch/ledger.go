package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Progress is the persisted form of the ledger
type Progress struct {
	Processed   []string  `json:"processed"`
	LastUpdated time.Time `json:"last_updated"`
}

// Ledger defines the interface for the durable record of completed items
type Ledger interface {
	// Load returns the identifiers already completed, empty when nothing was saved yet
	Load() ([]string, error)

	// Save replaces the persisted set with processed
	Save(processed []string) error
}

// JSONLedger implements the Ledger interface as a JSON file
type JSONLedger struct {
	path       string
	timeSource TimeSource
}

// NewJSONLedger creates a new JSONLedger stored at path
func NewJSONLedger(path string) *JSONLedger {
	return NewJSONLedgerWithTime(path, &defaultTimeSource{})
}

// NewJSONLedgerWithTime creates a new JSONLedger with a custom time source for testing
func NewJSONLedgerWithTime(path string, timeSrc TimeSource) *JSONLedger {
	return &JSONLedger{path: path, timeSource: timeSrc}
}

// Load reads the ledger file. Content that does not decode is reported as
// ErrLedgerCorrupt; resuming without it would bill completed items again.
func (l *JSONLedger) Load() ([]string, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading progress file: %w", err)
	}

	// last_updated is informational only and older writers used zone-less
	// timestamps, so only the identifiers are decoded
	var progress struct {
		Processed []string `json:"processed"`
	}
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLedgerCorrupt, l.path, err)
	}
	if progress.Processed == nil {
		progress.Processed = []string{}
	}
	return progress.Processed, nil
}

// Save writes the ledger to a temporary file next to the target and renames
// it into place, so the file on disk is always either the old or the new ledger
func (l *JSONLedger) Save(processed []string) error {
	if processed == nil {
		processed = []string{}
	}
	data, err := json.MarshalIndent(Progress{
		Processed:   processed,
		LastUpdated: l.timeSource.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling progress: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp progress file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing progress file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing progress file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing progress file: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("replacing progress file: %w", err)
	}
	return syncDir(filepath.Dir(l.path))
}

// syncDir flushes a directory entry so a rename inside it survives a power loss
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("syncing progress directory: %w", err)
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return fmt.Errorf("syncing progress directory: %w", err)
	}
	return d.Close()
}
