package calculator

import "fmt"

// MACD returns the difference of the short and long exponential averages of
// closes and the signal line, an exponential average of that difference.
// Both columns are defined from index 0; early values carry little history.
func MACD(closes []float64, short, long, signal int) (macdLine, signalLine []float64, err error) {
	if short <= 0 || long <= 0 || signal <= 0 {
		return nil, nil, fmt.Errorf("%w: macd spans (%d, %d, %d) must be positive",
			ErrInvalidParameter, short, long, signal)
	}
	if len(closes) == 0 {
		return nil, nil, fmt.Errorf("%w: empty close column", ErrInvalidInput)
	}

	shortEMA, err := EWM(closes, short)
	if err != nil {
		return nil, nil, err
	}
	longEMA, err := EWM(closes, long)
	if err != nil {
		return nil, nil, err
	}

	macdLine = make([]float64, len(closes))
	for i := range macdLine {
		macdLine[i] = shortEMA[i] - longEMA[i]
	}
	signalLine, err = EWM(macdLine, signal)
	if err != nil {
		return nil, nil, err
	}
	return macdLine, signalLine, nil
}
