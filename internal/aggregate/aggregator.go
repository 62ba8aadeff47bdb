// =============================================================================
// Sales Aggregator - Aggregation Module
// =============================================================================
//
// This module turns the flat record sequence into the per-date series the
// chart renderer draws.
//
// AGGREGATION STEPS:
//   1. Keep records of the requested region (all records when none is given)
//   2. Group by calendar date
//   3. Sum sales per date in exact decimal arithmetic
//   4. Sort ascending by date
//
// =============================================================================

package aggregate

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// AllRegions is the selector value meaning "no region filter".
const AllRegions = "all"

// ErrNotLoaded is reported when a series is requested before any data has
// been loaded.
var ErrNotLoaded = errors.New("sales data has not been loaded")

// Result is what the rendering side receives for one series request.
type Result struct {
	Region string
	Points []types.SeriesPoint
	Err    error
}

// OK reports whether the result carries a usable series.
func (r Result) OK() bool {
	return r.Err == nil
}

// IsAllRegions reports whether region selects the whole dataset.
func IsAllRegions(region string) bool {
	region = strings.TrimSpace(region)
	return region == "" || fold(region) == AllRegions
}

// =============================================================================
// SERIES
// =============================================================================

// Series groups records by date and sums their sales.
//
// PARAMETERS:
//   - records: The flat record sequence.
//   - region: Region filter, compared case-insensitively. Empty or "all"
//     keeps every record.
//
// RETURNS:
//   - One point per distinct date, dates strictly increasing. An empty
//     (non-nil) slice when nothing matches.
func Series(records []types.CleanRecord, region string) []types.SeriesPoint {
	all := IsAllRegions(region)
	want := fold(strings.TrimSpace(region))

	sums := make(map[time.Time]decimal.Decimal)
	for _, record := range records {
		if !all && fold(record.Region()) != want {
			continue
		}
		day := record.Date()
		if sum, ok := sums[day]; ok {
			sums[day] = sum.Add(record.Sales())
		} else {
			sums[day] = record.Sales()
		}
	}

	points := make([]types.SeriesPoint, 0, len(sums))
	for day, sum := range sums {
		points = append(points, types.SeriesPoint{Date: day, Sales: sum})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return points
}

// Regions lists the distinct regions present in records, lower-cased and
// sorted, for a region selector.
func Regions(records []types.CleanRecord) []string {
	seen := make(map[string]bool)
	var regions []string

	for _, record := range records {
		key := strings.ToLower(record.Region())
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		regions = append(regions, key)
	}

	sort.Strings(regions)
	return regions
}

// Total sums the sales of every point.
func Total(points []types.SeriesPoint) decimal.Decimal {
	total := decimal.Zero
	for _, p := range points {
		total = total.Add(p.Sales)
	}
	return total
}

func fold(s string) string {
	return cases.Fold().String(s)
}
