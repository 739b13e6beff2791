package batch

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	invoicesSheet   = "Invoices"
	categoriesSheet = "Categories"
)

// categoryTotal aggregates the rows of one category
type categoryTotal struct {
	name     string
	count    int
	amount   float64
	unparsed int // rows whose total_amount is not a number
}

// ExportXLSX converts the CSV result file into a workbook with an Invoices
// sheet mirroring the rows and a Categories sheet with per-category counts
// and totals. It returns the number of invoice rows exported.
func ExportXLSX(csvPath, xlsxPath string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	records, err := readResultRows(csvPath)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", invoicesSheet); err != nil {
		return 0, fmt.Errorf("xlsx rename sheet: %w", err)
	}

	categoryCol := columnIndex("category")
	amountCol := columnIndex("total_amount")
	totals := map[string]*categoryTotal{}

	for i, record := range records {
		row := make([]interface{}, len(record))
		for j, v := range record {
			row[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(invoicesSheet, cell, &row); err != nil {
			return 0, fmt.Errorf("xlsx write row %d: %w", i+1, err)
		}
		if i == 0 || len(record) != len(resultColumns) {
			continue
		}

		name := record[categoryCol]
		t, ok := totals[name]
		if !ok {
			t = &categoryTotal{name: name}
			totals[name] = t
		}
		t.count++
		if amount, ok := parseAmount(record[amountCol]); ok {
			t.amount += amount
		} else {
			t.unparsed++
		}
	}

	_ = f.SetColWidth(invoicesSheet, "A", "A", 24) // file
	_ = f.SetColWidth(invoicesSheet, "B", "E", 20)
	_ = f.SetColWidth(invoicesSheet, "F", "F", 26) // category
	_ = f.SetColWidth(invoicesSheet, "H", "I", 48) // items, reasoning

	if _, err := f.NewSheet(categoriesSheet); err != nil {
		return 0, fmt.Errorf("xlsx new sheet: %w", err)
	}
	header := []interface{}{"category", "invoices", "total_amount", "unparsed_amounts"}
	if err := f.SetSheetRow(categoriesSheet, "A1", &header); err != nil {
		return 0, fmt.Errorf("xlsx write header: %w", err)
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		t := totals[name]
		row := []interface{}{t.name, t.count, t.amount, t.unparsed}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(categoriesSheet, cell, &row); err != nil {
			return 0, fmt.Errorf("xlsx write category %s: %w", name, err)
		}
	}
	_ = f.SetColWidth(categoriesSheet, "A", "A", 26)

	if err := f.SaveAs(xlsxPath); err != nil {
		return 0, fmt.Errorf("xlsx write: %w", err)
	}

	exported := 0
	if len(records) > 0 {
		exported = len(records) - 1
	}
	logger.Info("Exported workbook", "path", xlsxPath, "rows", exported, "categories", len(names))
	return exported, nil
}

func readResultRows(csvPath string) ([][]string, error) {
	records, err := readResultRecords(csvPath)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		records = [][]string{resultColumns}
	}
	return records, nil
}

func columnIndex(name string) int {
	for i, col := range resultColumns {
		if col == name {
			return i
		}
	}
	return -1
}

// parseAmount reads amounts such as "1 234,50", "$1,234.50" or "1234.5"
func parseAmount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		}
		return -1
	}, s)
	if s == "" {
		return 0, false
	}

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		// Whichever separator comes last is the decimal one
		if comma > dot {
			s = strings.ReplaceAll(s[:comma], ".", "") + "." + s[comma+1:]
		}
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		// A single trailing comma group of one or two digits is a decimal comma
		if strings.Count(s, ",") == 1 && len(s)-comma-1 <= 2 {
			s = s[:comma] + "." + s[comma+1:]
		}
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
