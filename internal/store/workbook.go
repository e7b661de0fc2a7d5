package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/mark-extract/internal/extract"
	"github.com/ironsheep/mark-extract/internal/month"
	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when the workbook has no sheet of the given name.
var ErrSheetNotFound = errors.New("sheet not found")

// Default workbook columns.
const (
	DefaultLookupColumn = "C"
	DefaultOutputColumn = "O"
)

// WorkbookOptions selects where records are written.
type WorkbookOptions struct {
	// Sheet defaults to the first sheet.
	Sheet string
	// LookupColumn holds "<note> <item>" keys; default C.
	LookupColumn string
	// OutputColumn receives the canonical month; default O.
	OutputColumn string
	// DryRun matches rows without saving the workbook.
	DryRun bool
}

// RowUpdate is one record written to one row.
type RowUpdate struct {
	Row      int    `json:"row"`
	Cell     string `json:"cell"`
	Key      string `json:"key"`
	Month    string `json:"month"`
	Previous string `json:"previous,omitempty"`
}

// Unmatched is a record that was not written.
type Unmatched struct {
	Page   int    `json:"page"`
	MarkID int    `json:"mark_id"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason"`
}

// UpdateReport lists what UpdateWorkbook did.
type UpdateReport struct {
	Sheet     string      `json:"sheet"`
	Matched   []RowUpdate `json:"matched"`
	Unmatched []Unmatched `json:"unmatched"`
}

// UpdateWorkbook writes the month of every complete record into the row whose
// lookup cell equals the record key, and saves the workbook in place.
//
// Records with an unresolved note, item or month are reported unmatched and
// never written. When several rows hold the same key, the first one wins.
// Previous values of the output cell are reported in canonical form when they
// parse as a year and month.
func UpdateWorkbook(path string, opts WorkbookOptions, records []extract.Record) (UpdateReport, error) {
	lookupCol, err := columnNumber(opts.LookupColumn, DefaultLookupColumn)
	if err != nil {
		return UpdateReport{}, err
	}
	outputCol := opts.OutputColumn
	if outputCol == "" {
		outputCol = DefaultOutputColumn
	}
	if _, err := excelize.ColumnNameToNumber(outputCol); err != nil {
		return UpdateReport{}, fmt.Errorf("invalid output column %q: %w", outputCol, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return UpdateReport{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetList()[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return UpdateReport{}, fmt.Errorf("%q in %s: %w", sheet, path, ErrSheetNotFound)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return UpdateReport{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	index := make(map[string]int)
	for i, row := range rows {
		if lookupCol > len(row) {
			continue
		}
		key := strings.TrimSpace(row[lookupCol-1])
		if _, seen := index[key]; key != "" && !seen {
			index[key] = i + 1
		}
	}

	report := UpdateReport{Sheet: sheet}
	for _, r := range records {
		key, ok := r.Key()
		if !ok || !r.Month.Resolved {
			report.Unmatched = append(report.Unmatched, Unmatched{
				Page: r.Page, MarkID: r.MarkID, Key: key, Reason: "unresolved fields",
			})
			continue
		}
		row, ok := index[key]
		if !ok {
			report.Unmatched = append(report.Unmatched, Unmatched{
				Page: r.Page, MarkID: r.MarkID, Key: key, Reason: "no row with this key",
			})
			continue
		}

		cell := fmt.Sprintf("%s%d", outputCol, row)
		prev, err := f.GetCellValue(sheet, cell)
		if err != nil {
			return report, fmt.Errorf("failed to read %s: %w", cell, err)
		}
		if c, err := month.ParseYearMonth(strings.TrimSpace(prev)); err == nil {
			prev = c.String()
		}
		value := r.Month.Value.String()
		if err := f.SetCellStr(sheet, cell, value); err != nil {
			return report, fmt.Errorf("failed to write %s: %w", cell, err)
		}
		report.Matched = append(report.Matched, RowUpdate{
			Row: row, Cell: cell, Key: key, Month: value, Previous: prev,
		})
	}

	if opts.DryRun || len(report.Matched) == 0 {
		return report, nil
	}
	if err := f.Save(); err != nil {
		return report, fmt.Errorf("failed to save workbook: %w", err)
	}
	return report, nil
}

func columnNumber(name, fallback string) (int, error) {
	if name == "" {
		name = fallback
	}
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return 0, fmt.Errorf("invalid lookup column %q: %w", name, err)
	}
	return n, nil
}
