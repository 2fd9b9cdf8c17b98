package types

import (
	"fmt"
	"math"
)

// AmountScale is the fixed-point scale of the currency column type: on-disk
// currency values are signed 64-bit integers in ten-thousandths.
const AmountScale = 10000

// Amount is a currency value in ten-thousandths of the account currency
// unit. Arithmetic on Amount is exact; conversion to float64 is for display
// only.
type Amount int64

// AmountFromFloat converts a decimal amount to its scaled representation,
// rounding to the nearest ten-thousandth.
func AmountFromFloat(v float64) (Amount, error) {
	scaled := math.Round(v * AmountScale)
	if scaled > math.MaxInt64 || scaled < math.MinInt64 || math.IsNaN(scaled) {
		return 0, ErrAmountOverflow
	}
	return Amount(scaled), nil
}

// Float64 returns the decimal value of the amount.
func (a Amount) Float64() float64 {
	return float64(a) / AmountScale
}

// String formats the amount with four decimal places.
func (a Amount) String() string {
	neg := ""
	// Magnitude in uint64; negating int64 would overflow at MinInt64.
	u := uint64(a)
	if a < 0 {
		neg = "-"
		u = -u
	}
	return fmt.Sprintf("%s%d.%04d", neg, u/AmountScale, u%AmountScale)
}
