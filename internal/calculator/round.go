package calculator

import (
	"math"
	"strconv"
)

// Round rounds v to the given number of decimal places, ties to even on the
// exact binary value (so Round(2.675, 2) == 2.67).
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
