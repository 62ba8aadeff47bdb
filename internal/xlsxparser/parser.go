// =============================================================================
// Sales Aggregator - XLSX Source Parser
// =============================================================================
//
// Some regions send their daily sales as workbooks instead of CSV exports.
// This module reads such a workbook with the same row contract as the CSV
// parser:
//
//   | Column A | Column B | Column C | Column D   | Column E |
//   |----------|----------|----------|------------|----------|
//   | product  | price    | quantity | date       | region   |
//   | pink ... | $3.00    | 10       | 2021-01-10 | north    |
//
//   - The first non-empty row of the sheet is the header row
//   - Column order is free, header names may carry whitespace
//   - Trailing empty cells are absent from the row, not ""
//
// Only the first sheet is read unless a sheet name is given.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// SHEET READER
// =============================================================================

// SheetReader streams the rows of one worksheet.
type SheetReader struct {
	file       *excelize.File
	rows       *excelize.Rows
	sheet      string
	headers    []string
	currentRow types.RawRow
	line       int
	err        error
}

// Open opens a workbook and positions the reader after the header row of
// its first sheet.
func Open(path string) (*SheetReader, error) {
	return OpenSheet(path, "")
}

// OpenSheet opens a workbook and reads the named sheet. An empty sheet name
// selects the first sheet.
//
// RETURNS:
//   - A pointer to the SheetReader.
//   - An error if the workbook cannot be opened or the sheet does not exist.
func OpenSheet(path, sheet string) (*SheetReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			f.Close()
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	r := &SheetReader{
		file:  f,
		rows:  rows,
		sheet: sheet,
	}

	if err := r.readHeaders(); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// readHeaders reads up to and including the first non-empty row.
func (r *SheetReader) readHeaders() error {
	for r.rows.Next() {
		r.line++

		cells, err := r.rows.Columns()
		if err != nil {
			return fmt.Errorf("error reading header row %d: %w", r.line, err)
		}
		if isRowEmpty(cells) {
			continue
		}

		r.headers = make([]string, len(cells))
		for i, cell := range cells {
			if strings.TrimSpace(cell) == "" {
				cell = fmt.Sprintf("Column_%d", i+1)
			}
			r.headers[i] = cell
		}
		return nil
	}

	// An empty sheet has no rows.
	return r.rows.Error()
}

// Next advances to the next non-empty row.
func (r *SheetReader) Next() bool {
	if r.err != nil || r.headers == nil {
		return false
	}

	for r.rows.Next() {
		r.line++

		cells, err := r.rows.Columns()
		if err != nil {
			r.err = fmt.Errorf("error reading sheet %s row %d: %w", r.sheet, r.line, err)
			return false
		}
		if isRowEmpty(cells) {
			continue
		}

		r.currentRow = make(types.RawRow, len(r.headers))
		for i, header := range r.headers {
			if i >= len(cells) {
				break
			}
			r.currentRow[header] = cells[i]
		}
		return true
	}

	if err := r.rows.Error(); err != nil {
		r.err = fmt.Errorf("error reading sheet %s: %w", r.sheet, err)
	}
	return false
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Row returns the current row.
func (r *SheetReader) Row() types.RawRow {
	return r.currentRow
}

// Headers returns the header names as read.
func (r *SheetReader) Headers() []string {
	return r.headers
}

// Line returns the 1-indexed sheet row of the current row.
func (r *SheetReader) Line() int {
	return r.line
}

// Err returns any error that occurred while reading.
func (r *SheetReader) Err() error {
	return r.err
}

// Close releases the row iterator and the workbook.
func (r *SheetReader) Close() error {
	var rowsErr error
	if r.rows != nil {
		rowsErr = r.rows.Close()
	}
	if err := r.file.Close(); err != nil {
		return err
	}
	return rowsErr
}
