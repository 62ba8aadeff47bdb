// =============================================================================
// Sales Aggregator - Row Transformations
// =============================================================================
//
// This module holds the per-row transformations applied before a sale is
// calculated:
//
//   RawRow --NormalizeRow--> NormalizedRow --ProductFilter--> (kept / dropped)
//                                 |
//                           RequireFields
//
// NORMALIZATION:
//   Header names and values are both trimmed on every row. Exports are not
//   trusted to have clean headers even when the first rows look clean.
//
// HEADER CASING:
//   Required fields are looked up by exact trimmed name first, then
//   case-insensitively, so " Product " satisfies "product".
//
// =============================================================================

package converter

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"github.com/ginjaninja78/sales-aggregator/internal/validation"
	"golang.org/x/text/cases"
)

// =============================================================================
// RECORD NORMALIZER
// =============================================================================

// Normalize trims every key and value of raw and checks that every field in
// required is present.
//
// RETURNS:
//   - The normalized row.
//   - A *validation.MalformedRowError naming the first missing field.
func Normalize(raw types.RawRow, required []string) (types.NormalizedRow, error) {
	row := NormalizeRow(raw, required)
	if err := RequireFields(row, required); err != nil {
		return nil, err
	}
	return row, nil
}

// NormalizeRow trims every key and value of raw. When two raw keys trim to
// the same name the first non-empty value, in key order, wins. Each name in
// canonical that is missing exactly but present under another casing is
// added under its canonical spelling.
func NormalizeRow(raw types.RawRow, canonical []string) types.NormalizedRow {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	row := make(types.NormalizedRow, len(raw))
	for _, key := range keys {
		name := strings.TrimSpace(key)
		value := strings.TrimSpace(raw[key])

		if existing, ok := row[name]; ok && existing != "" {
			continue
		}
		row[name] = value
	}

	for _, field := range canonical {
		if _, ok := row[field]; ok {
			continue
		}
		for _, key := range sortedKeys(row) {
			if strings.EqualFold(key, field) {
				row[field] = row[key]
				break
			}
		}
	}

	return row
}

// RequireFields returns a *validation.MalformedRowError for the first field
// of required that row does not carry.
func RequireFields(row types.NormalizedRow, required []string) error {
	for _, field := range required {
		if _, ok := row[field]; !ok {
			return &validation.MalformedRowError{Field: field, Reason: "is missing"}
		}
	}
	return nil
}

func sortedKeys(row types.NormalizedRow) []string {
	keys := make([]string, 0, len(row))
	for key := range row {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// PRODUCT FILTER
// =============================================================================

// ProductFilter keeps rows for a single target product.
type ProductFilter struct {
	target string
}

// NewProductFilter returns a filter for target. Surrounding whitespace is
// ignored and the comparison is Unicode case-folded.
func NewProductFilter(target string) *ProductFilter {
	return &ProductFilter{target: fold(strings.TrimSpace(target))}
}

// Match reports whether row is a sale of the target product.
// A row without a product field never matches.
func (f *ProductFilter) Match(row types.NormalizedRow) bool {
	product, ok := row.Get(types.FieldProduct)
	if !ok {
		return false
	}
	return fold(product) == f.target
}

// Target returns the case-folded target product.
func (f *ProductFilter) Target() string {
	return f.target
}

// fold case-folds s. A new Caser per call: Casers are not safe for
// concurrent use and the pipeline may read files in parallel.
func fold(s string) string {
	return cases.Fold().String(s)
}
