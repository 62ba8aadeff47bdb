package validation

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// =============================================================================
// RUN SUMMARY
// =============================================================================

// Summary collects the recoverable failures of one ingestion run together
// with the counts reported to the user.
type Summary struct {
	// RunID identifies the run in logs.
	RunID string

	StartTime time.Time
	EndTime   time.Time

	// FilesConfigured is the number of source paths the run was given.
	FilesConfigured int

	// FilesProcessed is the number of source files read to completion.
	FilesProcessed int

	// FilesSkipped is the number of source paths that did not exist.
	FilesSkipped int

	// MissingFiles lists the skipped paths in configuration order.
	MissingFiles []string

	// RowsRead is the number of non-blank data rows seen across all files.
	RowsRead int

	// RowsFiltered is the number of rows dropped because they were for
	// another product. These are not errors.
	RowsFiltered int

	// RowsSkipped is the number of rows dropped because they failed
	// normalization or sales calculation.
	RowsSkipped int

	// RowsRetained is the number of CleanRecords produced.
	RowsRetained int

	// SkippedByKind counts skipped rows per error kind.
	SkippedByKind map[string]int

	// Samples holds the first MaxSamples row errors, in encounter order.
	Samples []*RowError

	// MaxSamples caps Samples. Zero keeps no samples.
	MaxSamples int
}

// NewSummary returns an empty summary keeping up to maxSamples row errors.
func NewSummary(runID string, maxSamples int) *Summary {
	return &Summary{
		RunID:         runID,
		StartTime:     time.Now(),
		SkippedByKind: make(map[string]int),
		MaxSamples:    maxSamples,
	}
}

// AddMissingFile records a skipped source path.
func (s *Summary) AddMissingFile(path string) {
	s.FilesSkipped++
	s.MissingFiles = append(s.MissingFiles, path)
}

// AddRowError records a skipped row.
func (s *Summary) AddRowError(err *RowError) {
	s.RowsSkipped++
	s.SkippedByKind[KindOf(err)]++
	if len(s.Samples) < s.MaxSamples {
		s.Samples = append(s.Samples, err)
	}
}

// Merge folds the counters of a per-file summary into s. Samples are kept
// in merge order, so merging in file order keeps them in encounter order.
func (s *Summary) Merge(other *Summary) {
	s.FilesProcessed += other.FilesProcessed
	s.FilesSkipped += other.FilesSkipped
	s.MissingFiles = append(s.MissingFiles, other.MissingFiles...)
	s.RowsRead += other.RowsRead
	s.RowsFiltered += other.RowsFiltered
	s.RowsSkipped += other.RowsSkipped
	s.RowsRetained += other.RowsRetained
	for kind, n := range other.SkippedByKind {
		s.SkippedByKind[kind] += n
	}
	for _, sample := range other.Samples {
		if len(s.Samples) >= s.MaxSamples {
			break
		}
		s.Samples = append(s.Samples, sample)
	}
}

// Finish stamps the end time.
func (s *Summary) Finish() {
	s.EndTime = time.Now()
}

// Duration returns how long the run took, or zero before Finish.
func (s *Summary) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// =============================================================================
// SUMMARY FORMATTING
// =============================================================================

// FormatSummary renders the summary for display.
//
// OUTPUT:
//   Files processed: 2
//   Files skipped:   1
//   Rows retained:   1234
//   Rows skipped:    3
//   ...
func FormatSummary(s *Summary) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Files configured: %d\n", s.FilesConfigured))
	builder.WriteString(fmt.Sprintf("Files processed:  %d\n", s.FilesProcessed))
	builder.WriteString(fmt.Sprintf("Files skipped:    %d\n", s.FilesSkipped))
	for _, path := range s.MissingFiles {
		builder.WriteString(fmt.Sprintf("  missing: %s\n", path))
	}
	builder.WriteString(fmt.Sprintf("Rows read:        %d\n", s.RowsRead))
	builder.WriteString(fmt.Sprintf("Rows filtered:    %d\n", s.RowsFiltered))
	builder.WriteString(fmt.Sprintf("Rows skipped:     %d\n", s.RowsSkipped))
	builder.WriteString(fmt.Sprintf("Rows retained:    %d\n", s.RowsRetained))

	if len(s.Samples) > 0 {
		builder.WriteString(fmt.Sprintf("\nFirst %d skipped row(s):\n", len(s.Samples)))
		for i, sample := range s.Samples {
			builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, sample.Error()))
		}
	}

	return builder.String()
}

// WriteSummary writes FormatSummary(s) to w.
func WriteSummary(w io.Writer, s *Summary) error {
	_, err := io.WriteString(w, FormatSummary(s))
	return err
}
