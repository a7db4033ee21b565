package calculator

import "fmt"

// EWM computes the exponential moving average with smoothing factor
// alpha = 2/(span+1). The first value seeds the recursion, so there is no
// warm-up gap:
//
//	ewm[0] = x[0]
//	ewm[i] = alpha*x[i] + (1-alpha)*ewm[i-1]
//
// A NaN input propagates to every later position.
func EWM(values []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, fmt.Errorf("%w: span %d must be positive", ErrInvalidSpan, span)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrInvalidInput)
	}

	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}
