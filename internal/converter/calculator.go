package converter

import (
	"strconv"
	"time"

	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"github.com/ginjaninja78/sales-aggregator/internal/validation"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when reading the date field.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

// SalesCalculator computes the sales value of a filtered row.
type SalesCalculator struct {
	prices PriceParser
}

// NewSalesCalculator returns a calculator reading prices with prices.
func NewSalesCalculator(prices PriceParser) *SalesCalculator {
	return &SalesCalculator{prices: prices}
}

// Calculate returns the CleanRecord for row: sales = price × quantity in
// decimal arithmetic, date and region copied as they are.
//
// ERRORS:
//   - *validation.InvalidPriceError    : price does not match the grammar
//   - *validation.InvalidQuantityError : quantity is not a non-negative integer
//   - *validation.MalformedRowError    : a field is missing or the date is unreadable
func (c *SalesCalculator) Calculate(row types.NormalizedRow) (types.CleanRecord, error) {
	if err := RequireFields(row, types.RequiredFields); err != nil {
		return types.CleanRecord{}, err
	}

	price, err := c.prices.ParsePrice(row[types.FieldPrice])
	if err != nil {
		return types.CleanRecord{}, err
	}

	quantity, err := ParseQuantity(row[types.FieldQuantity])
	if err != nil {
		return types.CleanRecord{}, err
	}

	dateText := row[types.FieldDate]
	date, err := ParseDate(dateText)
	if err != nil {
		return types.CleanRecord{}, err
	}

	sales := price.Mul(decimal.NewFromInt(quantity))

	return types.NewCleanRecord(sales, date, dateText, row[types.FieldRegion]), nil
}

// ParseQuantity parses text as a non-negative integer.
func ParseQuantity(text string) (int64, error) {
	if text == "" {
		return 0, &validation.InvalidQuantityError{Value: text, Reason: "is empty"}
	}

	quantity, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, &validation.InvalidQuantityError{Value: text, Reason: "is not an integer"}
	}
	if quantity < 0 {
		return 0, &validation.InvalidQuantityError{Value: text, Reason: "is negative"}
	}

	return quantity, nil
}

// ParseDate reads a calendar date. Any time of day is kept on the returned
// value but dropped when the record is built.
func ParseDate(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, &validation.MalformedRowError{Field: types.FieldDate, Reason: "is empty"}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &validation.MalformedRowError{
		Field:  types.FieldDate,
		Reason: "is not a recognised date: '" + text + "'",
	}
}
