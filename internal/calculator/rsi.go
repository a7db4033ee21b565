package calculator

import (
	"fmt"
	"math"
)

// RSI computes the relative strength index column using simple rolling means
// of gains and losses over the window.
//
// The first window entries are NaN (the first price change is undefined).
// A window with losses but no gains yields 0, gains but no losses yields 100,
// and a window with neither (flat prices) yields NaN rather than a neutral 50.
func RSI(closes []float64, window int) ([]float64, error) {
	if len(closes) == 0 {
		return nil, fmt.Errorf("%w: empty close column", ErrInvalidInput)
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	gains[0], losses[0] = math.NaN(), math.NaN()
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		switch {
		case math.IsNaN(change):
			gains[i], losses[i] = math.NaN(), math.NaN()
		case change > 0:
			gains[i] = change
		case change < 0:
			losses[i] = -change
		}
	}

	avgGain, err := RollingMean(gains, window)
	if err != nil {
		return nil, err
	}
	avgLoss, err := RollingMean(losses, window)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(closes))
	for i := range out {
		// IEEE division: x/0 = +Inf gives 100, 0/0 = NaN stays NaN
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out, nil
}
