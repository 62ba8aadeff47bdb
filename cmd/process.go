// =============================================================================
// Sales Aggregator - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs the ingestion pipeline
// and writes the flat output artifact.
//
// COMMAND USAGE:
//   sales process [flags]
//
// FLAGS:
//   --dry-run     : Load and report without writing the artifact
//
// PROCESSING PIPELINE:
//   1. Read every configured source (missing files are skipped)
//   2. Keep the target product's rows and compute their sales
//   3. Write the sales,date,region artifact
//   4. Print the run summary and the first few records
//
// The command fails only on fatal errors: a source that exists but cannot
// be read, or an artifact that cannot be written.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/ginjaninja78/sales-aggregator/internal/converter"
	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"github.com/ginjaninja78/sales-aggregator/internal/validation"
	"github.com/spf13/cobra"
)

// previewRows is how many records are echoed after a run.
const previewRows = 5

// dryRun loads and reports without writing the artifact.
var dryRun bool

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Load the sales sources and write the formatted artifact",
	Long: `The process command reads every configured source file, keeps the rows
for the target product, computes price x quantity for each and writes the
result as a sales,date,region CSV.

Missing source files and unreadable rows are reported in the summary and do
not fail the run. A source that exists but cannot be read does.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Load and report without writing the artifact")
}

// runProcess loads the sources, writes the artifact and reports.
func runProcess(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	pipeline, err := converter.New(mainConfig, logger)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== Sales Aggregator ===")

	summary, err := pipeline.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load sales data: %w", err)
	}

	if dryRun {
		fmt.Fprintln(out, "Dry run: artifact not written")
	} else {
		if err := pipeline.WriteArtifact(mainConfig.OutputFile); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
		fmt.Fprintf(out, "Wrote %s\n", mainConfig.OutputFile)
	}

	fmt.Fprintln(out)
	if err := validation.WriteSummary(out, summary); err != nil {
		return err
	}

	return writePreview(out, pipeline.Records())
}

// writePreview prints the first previewRows records.
func writePreview(w io.Writer, records []types.CleanRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "\nNo records retained.")
		return err
	}

	n := min(previewRows, len(records))
	rows := make([][]string, 0, n)
	for _, record := range records[:n] {
		rows = append(rows, []string{record.SalesText(), record.DateText(), record.Region()})
	}

	if _, err := fmt.Fprintf(w, "\nFirst %d of %d record(s):\n", n, len(records)); err != nil {
		return err
	}
	return writeTable(w, []string{"sales", "date", "region"}, rows)
}
