package model

import (
	"math"
	"time"
)

// Derived column names, shared by exporters, the API and the recorder.
const (
	ColumnMovingAverage = "moving_average"
	ColumnRSI           = "rsi"
	ColumnMACD          = "macd"
	ColumnSignalLine    = "signal_line"
)

// IndicatorParams sizes every indicator of one analysis run.
type IndicatorParams struct {
	MAWindow             int     `json:"ma_window"`
	RSIWindow            int     `json:"rsi_window"`
	MACDShort            int     `json:"macd_short"`
	MACDLong             int     `json:"macd_long"`
	MACDSignal           int     `json:"macd_signal"`
	FluctuationThreshold float64 `json:"fluctuation_threshold"`
}

// DefaultIndicatorParams returns the standard sizing: MA(5), RSI(14), MACD(12,26,9), 5% threshold.
func DefaultIndicatorParams() IndicatorParams {
	return IndicatorParams{
		MAWindow:             5,
		RSIWindow:            14,
		MACDShort:            12,
		MACDLong:             26,
		MACDSignal:           9,
		FluctuationThreshold: 5,
	}
}

// Summary is the average close over the span of the series.
type Summary struct {
	AveragePrice float64
	Start        time.Time
	End          time.Time
}

// FluctuationAlert is raised when the peak-to-trough swing exceeds the threshold.
// It is a reported condition, not an error.
type FluctuationAlert struct {
	Symbol    string
	Percent   float64
	Threshold float64
	Start     time.Time
	End       time.Time
}

// Analysis is the augmented table produced by one run: the caller's series,
// shared by reference and never written to, plus freshly allocated derived
// columns of the same length and the scalar results.
type Analysis struct {
	Series *PriceSeries
	Label  string
	Params IndicatorParams

	MovingAverage []float64
	RSI           []float64
	MACD          []float64
	SignalLine    []float64
	// Skipped names the derived columns left out because their window is
	// longer than the series. Skipped columns are nil.
	Skipped []string

	Summary        Summary
	StdDeviation   float64
	FluctuationPct float64
	Alert          *FluctuationAlert

	ComputedAt time.Time
}

// Column returns the derived column with the given name, or nil.
func (a *Analysis) Column(name string) []float64 {
	switch name {
	case ColumnMovingAverage:
		return a.MovingAverage
	case ColumnRSI:
		return a.RSI
	case ColumnMACD:
		return a.MACD
	case ColumnSignalLine:
		return a.SignalLine
	}
	return nil
}

// IsSkipped reports whether the named column was left out for lack of bars.
func (a *Analysis) IsSkipped(name string) bool {
	for _, s := range a.Skipped {
		if s == name {
			return true
		}
	}
	return false
}

// DerivedColumns lists the derived column names in export order.
func DerivedColumns() []string {
	return []string{ColumnMovingAverage, ColumnRSI, ColumnMACD, ColumnSignalLine}
}

// Last returns the last value of a column, NaN when the column is empty.
func Last(col []float64) float64 {
	if len(col) == 0 {
		return math.NaN()
	}
	return col[len(col)-1]
}
