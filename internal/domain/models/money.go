package models

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol is the single display currency (Ghana cedi).
const CurrencySymbol = "₵"

// ParseAmount reads a user-typed price or amount. Empty input is zero; negative or
// malformed input is rejected.
func ParseAmount(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(text, ",", "."))
	if err != nil {
		return 0, Invalid("amount", "not a number")
	}
	if d.IsNegative() {
		return 0, Invalid("amount", "must not be negative")
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, Invalid("amount", "too large")
	}
	return f, nil
}

// FormatMoney renders a value with two decimals. Rounding happens here only.
func FormatMoney(v float64) string {
	return CurrencySymbol + decimal.NewFromFloat(v).StringFixed(2)
}

// FormatAmount renders a value with two decimals and no symbol.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatInput renders a stored value for a form input, unrounded, so that
// posting the form back unchanged parses to the same float64.
func FormatInput(v float64) string {
	return decimal.NewFromFloat(v).String()
}
