package batch

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	itemsBucketName = "items"
	runsBucketName  = "runs"
)

// ItemHistory summarizes what happened to one input file across runs
type ItemHistory struct {
	Name       string    `json:"name"`
	Runs       int       `json:"runs"`     // runs that processed the item
	Failures   int       `json:"failures"` // consecutive failed runs, reset on success
	LastStatus Status    `json:"last_status"`
	LastError  string    `json:"last_error,omitempty"`
	LastRunID  string    `json:"last_run_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// History defines the interface for the per-item audit trail
type History interface {
	// RecordItem folds one item outcome into its history and returns the updated entry
	RecordItem(runID string, result ItemResult, at time.Time) (*ItemHistory, error)

	// GetItem retrieves the history of an item by file name
	GetItem(name string) (*ItemHistory, error)

	// RecordRun saves a run summary
	RecordRun(summary *RunSummary) error

	// ListRuns returns all saved run summaries
	ListRuns() ([]*RunSummary, error)

	// Close closes the database connection
	Close() error
}

// BoltHistory implements the History interface using BoltDB
type BoltHistory struct {
	db *bbolt.DB
}

// NewBoltHistory opens the history database. The file lock doubles as a
// guard against two batch processes sharing one output directory.
func NewBoltHistory(path string) (*BoltHistory, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(itemsBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltHistory{db: db}, nil
}

// RecordItem updates the history entry of the item in a single transaction
func (b *BoltHistory) RecordItem(runID string, result ItemResult, at time.Time) (*ItemHistory, error) {
	var entry ItemHistory
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(itemsBucketName))
		if data := bucket.Get([]byte(result.Item.Name)); data != nil {
			if err := json.Unmarshal(data, &entry); err != nil {
				return fmt.Errorf("unmarshaling item history: %w", err)
			}
		}

		entry.Name = result.Item.Name
		entry.Runs++
		entry.LastStatus = result.Status
		entry.LastRunID = runID
		entry.UpdatedAt = at
		if result.Status == StatusSucceeded {
			entry.Failures = 0
			entry.LastError = ""
		} else {
			entry.Failures++
			if result.Err != nil {
				entry.LastError = result.Err.Error()
			}
		}

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshaling item history: %w", err)
		}
		return bucket.Put([]byte(entry.Name), data)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetItem retrieves the history of an item by file name
func (b *BoltHistory) GetItem(name string) (*ItemHistory, error) {
	var entry *ItemHistory
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(itemsBucketName))
		data := bucket.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("item history not found: %s", name)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordRun saves a run summary keyed by its run ID
func (b *BoltHistory) RecordRun(summary *RunSummary) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucketName))
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("marshaling run summary: %w", err)
		}
		return bucket.Put([]byte(summary.RunID), data)
	})
}

// ListRuns returns all saved run summaries
func (b *BoltHistory) ListRuns() ([]*RunSummary, error) {
	runs := make([]*RunSummary, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var summary RunSummary
			if err := json.Unmarshal(v, &summary); err != nil {
				return fmt.Errorf("unmarshaling run summary: %w", err)
			}
			runs = append(runs, &summary)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Close closes the database connection
func (b *BoltHistory) Close() error {
	return b.db.Close()
}
