package calculator

import (
	"fmt"
	"math"
)

func checkWindow(n, window int) error {
	if window <= 0 || window > n {
		return fmt.Errorf("%w: window %d over %d values", ErrInvalidWindow, window, n)
	}
	return nil
}

// RollingMean returns the trailing mean of each window of the given size.
// Positions before window-1, and windows containing NaN, are NaN.
func RollingMean(values []float64, window int) ([]float64, error) {
	if err := checkWindow(len(values), window); err != nil {
		return nil, err
	}

	out := make([]float64, len(values))
	var sum float64
	nans := 0
	run := 0 // length of the trailing run of identical values

	for i, v := range values {
		if math.IsNaN(v) {
			nans++
		} else {
			sum += v
		}
		if i >= window {
			old := values[i-window]
			if math.IsNaN(old) {
				nans--
			} else {
				sum -= old
			}
		}
		if i > 0 && v == values[i-1] {
			run++
		} else {
			run = 1
		}

		switch {
		case i < window-1 || nans > 0:
			out[i] = math.NaN()
		case run >= window:
			// a constant window averages to itself; avoids drift left in sum
			out[i] = v
		default:
			out[i] = sum / float64(window)
		}
	}
	return out, nil
}

// RollingStd returns the trailing standard deviation of each window using
// ddof delta degrees of freedom (1 for the sample deviation).
// Positions before window-1, windows containing NaN, and windows with
// window-ddof <= 0 are NaN.
func RollingStd(values []float64, window, ddof int) ([]float64, error) {
	if ddof < 0 {
		return nil, fmt.Errorf("%w: ddof %d must not be negative", ErrInvalidParameter, ddof)
	}
	if err := checkWindow(len(values), window); err != nil {
		return nil, err
	}

	out := make([]float64, len(values))
	run := 0
	for i, v := range values {
		if i > 0 && v == values[i-1] {
			run++
		} else {
			run = 1
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		if run >= window && !math.IsNaN(v) && window-ddof > 0 {
			out[i] = 0
			continue
		}
		out[i] = windowStd(values[i-window+1:i+1], ddof)
	}
	return out, nil
}

// StdDev is the whole-series standard deviation: RollingStd with the window
// spanning every value, reported as a scalar.
func StdDev(values []float64, ddof int) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: empty series", ErrInvalidInput)
	}
	std, err := RollingStd(values, len(values), ddof)
	if err != nil {
		return 0, err
	}
	return std[len(std)-1], nil
}

func windowStd(w []float64, ddof int) float64 {
	n := len(w)
	if n-ddof <= 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range w {
		if math.IsNaN(v) {
			return math.NaN()
		}
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range w {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-ddof))
}
