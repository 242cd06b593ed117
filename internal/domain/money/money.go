// Package money holds the rounding rules shared by every payroll calculation.
// Amounts are whole rupees stored as int64; rates and intermediate products
// are decimals so that rounding happens exactly once per derived amount.
package money

import "github.com/shopspring/decimal"

// Amount is a whole-currency-unit value. No fractional paise are retained.
type Amount = int64

var hundred = decimal.NewFromInt(100)

// Round rounds half-up to the nearest rupee. Negative values round half away
// from zero, which keeps Round(-x) == -Round(x).
func Round(d decimal.Decimal) Amount {
	return d.Round(0).IntPart()
}

// Dec lifts an amount into decimal space.
func Dec(a Amount) decimal.Decimal {
	return decimal.NewFromInt(a)
}

// Percent returns the rounded value of base × rate%, where rate is expressed
// in percent (12 means 12%).
func Percent(base Amount, rate decimal.Decimal) Amount {
	return Round(PercentOf(Dec(base), rate))
}

// PercentOf is Percent without rounding.
func PercentOf(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}

// Min returns the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// ClampZero floors negative amounts at zero.
func ClampZero(a Amount) Amount {
	if a < 0 {
		return 0
	}
	return a
}

// Sum adds the given amounts.
func Sum(values ...Amount) Amount {
	var total Amount
	for _, v := range values {
		total += v
	}
	return total
}

// MustRate parses a literal rate. It panics on malformed input and is only
// meant for package-level defaults.
func MustRate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
