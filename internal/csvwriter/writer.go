// =============================================================================
// Sales Aggregator - CSV Writer Module
// =============================================================================
//
// This module serializes the flat record set to the artifact consumed by the
// chart renderer.
//
// OUTPUT STRUCTURE:
//
//   sales,date,region
//   30.00,2021-01-10,north
//   28.00,2021-01-10,south
//
//   - One row per CleanRecord, in ingestion order (not sorted, not grouped)
//   - sales keeps the precision of its inputs
//   - date and region are the trimmed source text
//
// The artifact is replaced atomically: readers see either the previous file
// or the complete new one, never a truncated file.
//
// =============================================================================

package csvwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"github.com/ginjaninja78/sales-aggregator/internal/validation"
	"github.com/ginjaninja78/sales-aggregator/pkg/utils"
)

// Header is the fixed header row of the artifact.
var Header = []string{"sales", "date", "region"}

// =============================================================================
// WRITE FUNCTIONS
// =============================================================================

// Write serializes records to w.
//
// PARAMETERS:
//   - w: The destination.
//   - records: The records in ingestion order.
//
// RETURNS:
//   - An error if writing fails.
func Write(w io.Writer, records []types.CleanRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(Header))
	for i, record := range records {
		row[0] = record.SalesText()
		row[1] = record.DateText()
		row[2] = record.Region()

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i+1, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}

	return nil
}

// WriteFile replaces the artifact at path with records.
//
// RETURNS:
//   - A *validation.IOFatalError if the artifact cannot be written. The
//     previous artifact, if any, is left intact in that case.
func WriteFile(path string, records []types.CleanRecord) error {
	err := utils.WriteFileAtomic(path, 0644, func(w io.Writer) error {
		return Write(w, records)
	})
	if err != nil {
		return &validation.IOFatalError{Op: "write", Path: path, Err: err}
	}

	return nil
}
