package converter

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/sales-aggregator/internal/validation"
	"github.com/shopspring/decimal"
)

// PriceParser turns price text into an exact decimal.
type PriceParser interface {
	ParsePrice(text string) (decimal.Decimal, error)
}

// GrammarPriceParser accepts prices of the form
//
//	[symbol] [spaces] digits [ "." digits ]
//
// where symbol is one of the configured currency symbols. Signs, thousands
// separators, exponents and a second decimal point are rejected.
type GrammarPriceParser struct {
	symbols []string
}

// NewPriceParser returns a parser accepting the given currency symbols.
// With no symbols only bare numbers are accepted.
func NewPriceParser(symbols ...string) *GrammarPriceParser {
	sorted := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s != "" {
			sorted = append(sorted, s)
		}
	}
	// Longest first so "US$" is tried before "$".
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})
	return &GrammarPriceParser{symbols: sorted}
}

// ParsePrice parses text. Errors are *validation.InvalidPriceError.
func (p *GrammarPriceParser) ParsePrice(text string) (decimal.Decimal, error) {
	body := strings.TrimSpace(text)
	if body == "" {
		return decimal.Zero, &validation.InvalidPriceError{Value: text, Reason: "is empty"}
	}

	for _, symbol := range p.symbols {
		if strings.HasPrefix(body, symbol) {
			body = strings.TrimLeft(body[len(symbol):], " ")
			break
		}
	}

	if reason := checkPriceBody(body); reason != "" {
		return decimal.Zero, &validation.InvalidPriceError{Value: text, Reason: reason}
	}

	price, err := decimal.NewFromString(body)
	if err != nil {
		return decimal.Zero, &validation.InvalidPriceError{Value: text, Reason: err.Error()}
	}
	return price, nil
}

// checkPriceBody returns why body is not digits [ "." digits ], or "".
func checkPriceBody(body string) string {
	if body == "" {
		return "has no digits"
	}

	intDigits, fracDigits, dots := 0, 0, 0
	for _, r := range body {
		switch {
		case r >= '0' && r <= '9':
			if dots == 0 {
				intDigits++
			} else {
				fracDigits++
			}
		case r == '.':
			dots++
			if dots > 1 {
				return "has more than one decimal point"
			}
		default:
			return "contains unexpected character '" + string(r) + "'"
		}
	}

	if intDigits == 0 {
		return "has no digits before the decimal point"
	}
	if dots == 1 && fracDigits == 0 {
		return "has no digits after the decimal point"
	}
	return ""
}
