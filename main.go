// =============================================================================
// Sales Aggregator - Main Entry Point
// =============================================================================
//
// USAGE:
//   sales process       - Load the sources and write the formatted artifact
//   sales series        - Print the daily sales series
//   sales version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Ingestion, aggregation and output (not for external import)
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/sales-aggregator/cmd"
)

func main() {
	cmd.Execute()
}
