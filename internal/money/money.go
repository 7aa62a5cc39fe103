// Package money converts between euro amounts on the wire (decimal numbers)
// and the integer cent values the ledger computes with.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FromEuros converts a euro amount to cents, rounding half away from zero.
// Remote records carry values such as 11.9 or 23.456 that must not leak
// float error into the fiscal totals.
func FromEuros(euros float64) int64 {
	return decimal.NewFromFloat(euros).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ToEuros converts cents back to a euro amount for wire encoding.
func ToEuros(cents int64) float64 {
	f, _ := decimal.New(cents, -2).Float64()
	return f
}

// ParseEuroString parses a decimal euro string ("35", "11.90") into cents.
// German files write the decimal separator as a comma.
func ParseEuroString(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// FormatEuro renders cents as a plain decimal with two places ("35.00"),
// the form used in generated receipt text.
func FormatEuro(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
