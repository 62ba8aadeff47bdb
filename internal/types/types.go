// =============================================================================
// Sales Aggregator - Shared Types
// =============================================================================
//
// This package contains the record types passed between the pipeline stages.
// Keeping them here avoids import cycles between:
//   - csvparser / xlsxparser (produce RawRow)
//   - converter              (produces CleanRecord)
//   - aggregate              (produces SeriesPoint)
//   - csvwriter              (consumes CleanRecord)
//
// =============================================================================

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FIELD NAMES
// =============================================================================

// Canonical field names every source file must provide.
const (
	FieldProduct  = "product"
	FieldPrice    = "price"
	FieldQuantity = "quantity"
	FieldDate     = "date"
	FieldRegion   = "region"
)

// RequiredFields lists the fields a row needs before it can be calculated.
var RequiredFields = []string{FieldProduct, FieldPrice, FieldQuantity, FieldDate, FieldRegion}

// DateLayout is the layout used when a calendar date is rendered as text.
const DateLayout = "2006-01-02"

// =============================================================================
// ROW TYPES
// =============================================================================

// RawRow is one source line as read: field name -> text value.
// Names and values may carry surrounding whitespace. A field missing from a
// short line is absent from the map rather than mapped to "".
type RawRow map[string]string

// NormalizedRow is a RawRow whose keys and values have all been trimmed.
type NormalizedRow map[string]string

// Get returns the value of a field and whether it was present.
func (r NormalizedRow) Get(field string) (string, bool) {
	v, ok := r[field]
	return v, ok
}

// =============================================================================
// CLEAN RECORD
// =============================================================================

// CleanRecord is a sale of the target product with its computed sales value.
// Fields are unexported so a record cannot change after NewCleanRecord.
type CleanRecord struct {
	sales    decimal.Decimal
	date     time.Time
	dateText string
	region   string
}

// NewCleanRecord builds a record. date is truncated to its calendar day in UTC.
func NewCleanRecord(sales decimal.Decimal, date time.Time, dateText, region string) CleanRecord {
	y, m, d := date.Date()
	return CleanRecord{
		sales:    sales,
		date:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		dateText: dateText,
		region:   region,
	}
}

// Sales returns price × quantity.
func (r CleanRecord) Sales() decimal.Decimal { return r.sales }

// Date returns the calendar date of the sale (UTC midnight).
func (r CleanRecord) Date() time.Time { return r.date }

// DateText returns the trimmed date text as it appeared in the source.
func (r CleanRecord) DateText() string { return r.dateText }

// Region returns the trimmed region label as it appeared in the source.
func (r CleanRecord) Region() string { return r.region }

// SalesText renders the sales value keeping the precision of its inputs,
// so 3.50 × 8 renders as "28.00" rather than "28".
func (r CleanRecord) SalesText() string {
	return FormatDecimal(r.sales)
}

// FormatDecimal renders d with as many fractional digits as its exponent carries.
func FormatDecimal(d decimal.Decimal) string {
	places := int32(0)
	if exp := d.Exponent(); exp < 0 {
		places = -exp
	}
	return d.StringFixed(places)
}

// =============================================================================
// SERIES POINT
// =============================================================================

// SeriesPoint is the summed sales of one calendar date.
type SeriesPoint struct {
	Date  time.Time
	Sales decimal.Decimal
}

// DateText renders the point's date as YYYY-MM-DD.
func (p SeriesPoint) DateText() string {
	return p.Date.Format(DateLayout)
}
