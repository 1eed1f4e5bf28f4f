// Package billing computes invoice financials from line items, tax and
// discount terms. Everything here is a pure function of its inputs.
package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds to two decimal places, half away from zero.
func Round2(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// Money converts a stored column value into a decimal.
func Money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// ToFloat converts a rounded decimal back into the float64 used by gorm columns.
func ToFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}
