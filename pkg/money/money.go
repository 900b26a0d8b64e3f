// Package money holds the decimal helpers shared by totals, persistence and gateways.
// Amounts stay exact everywhere; rounding only happens when rendering or when a
// gateway needs integer minor units.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const displayPlaces = 2

var hundred = decimal.NewFromInt(100)

// Display renders an amount rounded half-up to two decimal places.
func Display(amount decimal.Decimal) string {
	return amount.StringFixed(displayPlaces)
}

// ToMinorUnits converts an amount into integer cents, rounding half-up.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts integer cents back into a decimal amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -displayPlaces)
}

// Parse reads a textual amount and rejects negatives.
func Parse(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q must not be negative", raw)
	}
	return value, nil
}

// MustParse is Parse for package-level constants.
func MustParse(raw string) decimal.Decimal {
	value, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return value
}
