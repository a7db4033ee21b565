package calculator

import (
	"fmt"
	"math"

	"PriceScope/internal/model"
)

// Summarize returns the mean close rounded to six decimals together with the
// earliest and latest bar dates.
func Summarize(series *model.PriceSeries) (model.Summary, error) {
	if series.Len() == 0 {
		return model.Summary{}, fmt.Errorf("%w: empty price series", ErrInvalidInput)
	}

	var sum float64
	n := 0
	start, end := series.Bars[0].Date, series.Bars[0].Date
	for _, b := range series.Bars {
		if b.Date.Before(start) {
			start = b.Date
		}
		if b.Date.After(end) {
			end = b.Date
		}
		if math.IsNaN(b.Close) {
			continue
		}
		sum += b.Close
		n++
	}
	if n == 0 {
		return model.Summary{}, fmt.Errorf("%w: no close prices", ErrInvalidInput)
	}

	return model.Summary{
		AveragePrice: Round(sum/float64(n), 6),
		Start:        start,
		End:          end,
	}, nil
}
