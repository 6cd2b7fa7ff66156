// Package money holds the decimal helpers used for every ledger amount.
package money

import "github.com/shopspring/decimal"

// Epsilon is the tolerance for split payments (principal + interest == amount).
var Epsilon = decimal.New(1, -2)

var Zero = decimal.Zero

func Sum(xs ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, x := range xs {
		total = total.Add(x)
	}
	return total
}

// EqualWithin reports |a-b| < Epsilon.
func EqualWithin(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// MaxPlaces reports whether d has at most n fractional digits.
func MaxPlaces(d decimal.Decimal, n int32) bool {
	return d.Equal(d.Truncate(n))
}

func Positive(d decimal.Decimal) bool { return d.GreaterThan(decimal.Zero) }

// Cents rounds half away from zero to two places.
func Cents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
