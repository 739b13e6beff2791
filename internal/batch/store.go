package batch

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/zombor/invoice-batch/internal/scanning"
)

// resultColumns is the header of the result file
var resultColumns = []string{
	"invoice_file", "invoice_number", "date", "seller", "client",
	"category", "confidence", "items_found", "reasoning", "total_amount",
}

// Store defines the interface for the durable result log
type Store interface {
	// Append adds one row per invoice after any rows already stored
	Append(results []*scanning.InvoiceData) error

	// Files returns the invoice_file column of every stored row
	Files() ([]string, error)
}

// CSVStore implements the Store interface as an append-only CSV file
type CSVStore struct {
	path string
}

// NewCSVStore creates a new CSVStore writing to path
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// oneLine keeps every row on a single physical line so a torn write can be
// told apart from a complete row by its missing newline
func oneLine(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }), " ")
}

func invoiceRow(r *scanning.InvoiceData) []string {
	row := []string{
		r.File,
		r.InvoiceNumber,
		r.Date,
		r.Seller,
		r.Client,
		string(r.Category),
		string(r.Confidence),
		strings.Join(r.Items, ", "),
		r.Reasoning,
		r.TotalAmount,
	}
	for i, v := range row {
		row[i] = oneLine(v)
	}
	return row
}

// completeLength returns the length of the file up to and including its last
// newline. Anything after it is a row torn by a crash.
func completeLength(f *os.File, size int64) (int64, error) {
	buf := make([]byte, 4096)
	end := size
	for end > 0 {
		start := max(end-int64(len(buf)), 0)
		chunk := buf[:end-start]
		if _, err := f.ReadAt(chunk, start); err != nil {
			return 0, err
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			return start + int64(i) + 1, nil
		}
		end = start
	}
	return 0, nil
}

// Append opens the file in append mode and writes the header first when the
// file is new or empty. A torn last line left by a crash is cut off before new
// rows are written; a torn header leaves nothing and is written again.
func (s *CSVStore) Append(results []*scanning.InvoiceData) error {
	if len(results) == 0 {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("opening result file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("inspecting result file: %w", err)
	}

	complete, err := completeLength(f, info.Size())
	if err != nil {
		return fmt.Errorf("reading result file: %w", err)
	}
	if complete < info.Size() {
		if err := f.Truncate(complete); err != nil {
			return fmt.Errorf("dropping torn row: %w", err)
		}
	}

	w := csv.NewWriter(f)
	if complete == 0 {
		if err := w.Write(resultColumns); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for _, r := range results {
		if err := w.Write(invoiceRow(r)); err != nil {
			return fmt.Errorf("writing row for %s: %w", r.File, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing result file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing result file: %w", err)
	}
	return f.Close()
}

// readResultRecords returns the newline-terminated records of the result file,
// header included. A missing file has none. Resume and export both read
// through here so they agree on what is stored.
func readResultRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening result file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("inspecting result file: %w", err)
	}
	complete, err := completeLength(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}

	r := csv.NewReader(io.NewSectionReader(f, 0, complete))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading result file: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Files reads back the identifiers of complete stored rows. A missing file has none.
func (s *CSVStore) Files() ([]string, error) {
	records, err := readResultRecords(s.path)
	if err != nil {
		return nil, err
	}

	files := []string{}
	for i, record := range records {
		if i == 0 {
			continue // header
		}
		if len(record) == len(resultColumns) && record[0] != "" {
			files = append(files, record[0])
		}
	}
	return files, nil
}
