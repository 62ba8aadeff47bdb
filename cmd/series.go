// =============================================================================
// Sales Aggregator - Series Command
// =============================================================================
//
// This file defines the 'series' command, which prints the per-date sales
// series the chart is drawn from.
//
// COMMAND USAGE:
//   sales series [--region REGION]
//
// OUTPUT:
//   date        sales
//   ----------  -------
//   2021-01-14  1234.00
//   2021-01-15  1500.00  <- price change
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/ginjaninja78/sales-aggregator/internal/aggregate"
	"github.com/ginjaninja78/sales-aggregator/internal/converter"
	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"github.com/spf13/cobra"
)

// priceChangeMarker flags the row of the configured price-change date.
const priceChangeMarker = "<- price change"

// region selects one region; empty or "all" selects every region.
var region string

// seriesCmd represents the 'series' command.
var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Print the daily sales series",
	Long: `The series command loads the sources and prints total sales per date in
ascending date order. With --region only sales in that region are summed.
The configured price-change date is flagged in the output.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeries(cmd)
	},
}

func init() {
	rootCmd.AddCommand(seriesCmd)

	seriesCmd.Flags().StringVar(&region, "region", "",
		`Region to sum ("all" or empty for every region)`)
}

// runSeries loads the sources and prints the series for region.
func runSeries(cmd *cobra.Command) error {
	pipeline, err := converter.New(mainConfig, logger)
	if err != nil {
		return err
	}

	if _, err := pipeline.Load(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load sales data: %w", err)
	}

	result := pipeline.Series(region)
	if !result.OK() {
		return fmt.Errorf("failed to build series for region %q: %w", result.Region, result.Err)
	}

	return writeSeries(cmd.OutOrStdout(), result, pipeline.PriceChangeDate())
}

// writeSeries prints result as a table, flagging priceChange.
func writeSeries(w io.Writer, result aggregate.Result, priceChange time.Time) error {
	if _, err := fmt.Fprintf(w, "Region: %s\n\n", result.Region); err != nil {
		return err
	}

	if len(result.Points) == 0 {
		_, err := fmt.Fprintln(w, "No sales.")
		return err
	}

	rows := make([][]string, 0, len(result.Points))
	for _, point := range result.Points {
		marker := ""
		if point.Date.Equal(priceChange) {
			marker = priceChangeMarker
		}
		rows = append(rows, []string{point.DateText(), types.FormatDecimal(point.Sales), marker})
	}

	if err := writeTable(w, []string{"date", "sales", ""}, rows); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nTotal: %s\n", types.FormatDecimal(aggregate.Total(result.Points)))
	return err
}
