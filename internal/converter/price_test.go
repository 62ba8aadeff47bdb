package converter

import (
	"errors"
	"testing"

	"github.com/ginjaninja78/sales-aggregator/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice_Valid(t *testing.T) {
	parser := NewPriceParser("$", "US$")

	tests := []struct {
		input string
		want  string
	}{
		{"$3.00", "3"},
		{"3.00", "3"},
		{"$ 3.50", "3.5"},
		{"US$4", "4"},
		{"  $0.99 ", "0.99"},
		{"$0", "0"},
		{"12", "12"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parser.ParsePrice(tt.input)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParsePrice_KeepsPrecision(t *testing.T) {
	got, err := NewPriceParser("$").ParsePrice("$3.50")
	require.NoError(t, err)
	assert.Equal(t, "3.50", got.StringFixed(-got.Exponent()))
}

func TestParsePrice_Invalid(t *testing.T) {
	parser := NewPriceParser("$")

	inputs := []string{
		"",
		"   ",
		"$",
		"abc",
		"$1,000.00",
		"-3.00",
		"$-3.00",
		"+3",
		"3.0.0",
		"3.",
		".50",
		"1e3",
		"€3.00",
		"$$3",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := parser.ParsePrice(input)
			require.Error(t, err)

			var priceErr *validation.InvalidPriceError
			require.True(t, errors.As(err, &priceErr))
			assert.Equal(t, input, priceErr.Value)
		})
	}
}

func TestParsePrice_NoSymbols(t *testing.T) {
	parser := NewPriceParser()

	_, err := parser.ParsePrice("$3.00")
	assert.Error(t, err)

	got, err := parser.ParsePrice("3.00")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(got))
}
