package service

import "github.com/shopspring/decimal"

// RoundingPrecision is the number of decimal places of monetary values in
// analysis responses.
const RoundingPrecision = 2

// round rounds a decimal value to RoundingPrecision places, half away from zero.
// It is applied to presentation values only; stored quantities and costs keep
// full precision.
//
// Example:
//
//	round(decimal.RequireFromString("123.456789"))  // 123.46
//	round(decimal.RequireFromString("0.005"))       // 0.01
//	round(decimal.RequireFromString("1.994"))       // 1.99
func round(value decimal.Decimal) decimal.Decimal {
	return value.Round(RoundingPrecision)
}

var hundred = decimal.NewFromInt(100)

// percentOf returns part / whole * 100, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
