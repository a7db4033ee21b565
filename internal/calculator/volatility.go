package calculator

import (
	"fmt"
	"math"
)

// DefaultFluctuationThreshold is the alert threshold in percent.
const DefaultFluctuationThreshold = 5.0

// Fluctuation is the peak-to-trough swing of the close column.
type Fluctuation struct {
	Percent   float64 // rounded to one decimal
	Threshold float64
	Max       float64
	Min       float64
}

// Exceeded reports whether the swing is strictly above the threshold.
func (f Fluctuation) Exceeded() bool {
	return f.Percent > f.Threshold
}

// StdDeviation returns the sample (ddof=1) standard deviation of the whole
// close column. A single close has no sample deviation and yields NaN.
func StdDeviation(closes []float64) (float64, error) {
	return StdDev(closes, 1)
}

// CalculateFluctuation computes round((max-min)/min*100, 1) over the closes,
// skipping NaN entries. A zero minimum cannot be divided by and is reported
// as ErrDegenerateSeries.
func CalculateFluctuation(closes []float64, threshold float64) (Fluctuation, error) {
	if math.IsNaN(threshold) {
		return Fluctuation{}, fmt.Errorf("%w: threshold is NaN", ErrInvalidParameter)
	}

	high, low := math.Inf(-1), math.Inf(1)
	seen := 0
	for _, c := range closes {
		if math.IsNaN(c) {
			continue
		}
		seen++
		if c > high {
			high = c
		}
		if c < low {
			low = c
		}
	}
	if seen == 0 {
		return Fluctuation{}, fmt.Errorf("%w: no close prices", ErrInvalidInput)
	}
	if low == 0 {
		return Fluctuation{}, fmt.Errorf("%w: minimum close is zero", ErrDegenerateSeries)
	}

	pct := (high - low) / low * 100
	return Fluctuation{
		Percent:   Round(pct, 1),
		Threshold: threshold,
		Max:       high,
		Min:       low,
	}, nil
}
