package calculator

import (
	"fmt"

	"PriceScope/internal/model"
)

// Closes extracts the close column of a series, rejecting a missing or empty series.
func Closes(series *model.PriceSeries) ([]float64, error) {
	if series == nil {
		return nil, fmt.Errorf("%w: no price series", ErrInvalidInput)
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: price series for %q is empty", ErrInvalidInput, series.Symbol)
	}
	return series.Closes(), nil
}

// MovingAverage computes the simple moving average column of the close prices.
// The first window-1 entries are NaN.
func MovingAverage(closes []float64, window int) ([]float64, error) {
	if len(closes) == 0 {
		return nil, fmt.Errorf("%w: empty close column", ErrInvalidInput)
	}
	return RollingMean(closes, window)
}
