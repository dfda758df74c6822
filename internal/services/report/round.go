package report

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Places used when presenting rates and percentages.
const (
	RatePlaces    = 4
	PercentPlaces = 2
)

// exactDigits covers the longest fractional expansion of a float64.
const exactDigits = 1075

// Round rounds the exact binary value of v to the given number of decimal places.
// Only true ties round half to even, so Round(-0.125, 2) is -0.12 while
// Round(2.675, 2) is 2.67 because 2.675 is stored slightly below the tie.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	d, err := decimal.NewFromString(new(big.Float).SetFloat64(v).Text('f', exactDigits))
	if err != nil {
		d = decimal.NewFromFloat(v)
	}
	f, _ := d.RoundBank(places).Float64()
	return f
}

// DiffPct is the percentage change of v relative to ref, rounded to two places.
func DiffPct(v, ref float64) float64 {
	if ref == 0 {
		return 0
	}
	return Round((v-ref)/ref*100, PercentPlaces)
}
