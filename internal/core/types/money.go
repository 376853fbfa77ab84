// Package types provides common type aliases and monetary arithmetic helpers.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Hundred is the divisor for percentage arithmetic.
var Hundred = decimal.NewFromInt(100)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Round2 rounds to two decimal places, half away from zero.
// This is the statutory currency rounding for fiscal amounts and must be
// applied exactly once, at the money-value boundary - never on intermediate
// full-precision values.
func Round2(m Money) Money {
	return m.Round(2)
}

// Percent returns m * p / 100 at full precision (no rounding).
func Percent(m Money, p Money) Money {
	return m.Mul(p).Div(Hundred)
}
