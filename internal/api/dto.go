package api

import (
	"math"
	"time"

	"PriceScope/internal/model"
	"PriceScope/internal/recorder"
)

const dateLayout = "2006-01-02"

// optional maps undefined values to JSON null.
func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func at(col []float64, i int) *float64 {
	if i >= len(col) {
		return nil
	}
	return optional(col[i])
}

type rowDTO struct {
	Date          string   `json:"date"`
	Open          *float64 `json:"open"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	Close         *float64 `json:"close"`
	Volume        *float64 `json:"volume"`
	MovingAverage *float64 `json:"moving_average"`
	RSI           *float64 `json:"rsi"`
	MACD          *float64 `json:"macd"`
	SignalLine    *float64 `json:"signal_line"`
}

type summaryDTO struct {
	AveragePrice *float64 `json:"average_price"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
}

type alertDTO struct {
	Percent   float64 `json:"percent"`
	Threshold float64 `json:"threshold"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
}

type paramsDTO struct {
	MAWindow             int     `json:"ma_window"`
	RSIWindow            int     `json:"rsi_window"`
	MACDShort            int     `json:"macd_short"`
	MACDLong             int     `json:"macd_long"`
	MACDSignal           int     `json:"macd_signal"`
	FluctuationThreshold float64 `json:"fluctuation_threshold"`
}

// AnalysisResponse is the body of GET /api/v1/analysis/{symbol}.
type AnalysisResponse struct {
	Symbol         string     `json:"symbol"`
	Label          string     `json:"label"`
	Params         paramsDTO  `json:"params"`
	Summary        summaryDTO `json:"summary"`
	StdDeviation   *float64   `json:"std_deviation"`
	FluctuationPct *float64   `json:"fluctuation_pct"`
	Alert          *alertDTO  `json:"alert"`
	Skipped        []string   `json:"skipped_columns"`
	ComputedAt     time.Time  `json:"computed_at"`
	Rows           []rowDTO   `json:"rows"`
}

func newAnalysisResponse(a *model.Analysis) *AnalysisResponse {
	p := a.Params
	resp := &AnalysisResponse{
		Symbol: a.Series.Symbol,
		Label:  a.Label,
		Params: paramsDTO{
			MAWindow: p.MAWindow, RSIWindow: p.RSIWindow,
			MACDShort: p.MACDShort, MACDLong: p.MACDLong, MACDSignal: p.MACDSignal,
			FluctuationThreshold: p.FluctuationThreshold,
		},
		Summary: summaryDTO{
			AveragePrice: optional(a.Summary.AveragePrice),
			Start:        a.Summary.Start.Format(dateLayout),
			End:          a.Summary.End.Format(dateLayout),
		},
		StdDeviation:   optional(a.StdDeviation),
		FluctuationPct: optional(a.FluctuationPct),
		Skipped:        append([]string{}, a.Skipped...),
		ComputedAt:     a.ComputedAt,
		Rows:           make([]rowDTO, a.Series.Len()),
	}
	if a.Alert != nil {
		resp.Alert = &alertDTO{
			Percent: a.Alert.Percent, Threshold: a.Alert.Threshold,
			Start: a.Alert.Start.Format(dateLayout), End: a.Alert.End.Format(dateLayout),
		}
	}
	for i, b := range a.Series.Bars {
		resp.Rows[i] = rowDTO{
			Date:          b.Date.Format(dateLayout),
			Open:          optional(b.Open),
			High:          optional(b.High),
			Low:           optional(b.Low),
			Close:         optional(b.Close),
			Volume:        optional(b.Volume),
			MovingAverage: at(a.MovingAverage, i),
			RSI:           at(a.RSI, i),
			MACD:          at(a.MACD, i),
			SignalLine:    at(a.SignalLine, i),
		}
	}
	return resp
}

type runDTO struct {
	ID             int64     `json:"id"`
	Label          string    `json:"label"`
	Bars           int       `json:"bars"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	AveragePrice   *float64  `json:"average_price"`
	StdDeviation   *float64  `json:"std_deviation"`
	FluctuationPct *float64  `json:"fluctuation_pct"`
	LastClose      *float64  `json:"last_close"`
	LastMA         *float64  `json:"last_moving_average"`
	LastRSI        *float64  `json:"last_rsi"`
	LastMACD       *float64  `json:"last_macd"`
	LastSignal     *float64  `json:"last_signal_line"`
	Alert          bool      `json:"alert"`
	ComputedAt     time.Time `json:"computed_at"`
}

// HistoryResponse is the body of GET /api/v1/history/{symbol}.
type HistoryResponse struct {
	Symbol string   `json:"symbol"`
	Runs   []runDTO `json:"runs"`
}

func newHistoryResponse(symbol string, runs []recorder.RunRecord) *HistoryResponse {
	resp := &HistoryResponse{Symbol: symbol, Runs: make([]runDTO, 0, len(runs))}
	for _, r := range runs {
		resp.Runs = append(resp.Runs, runDTO{
			ID: r.ID, Label: r.Label, Bars: r.Bars, StartDate: r.StartDate, EndDate: r.EndDate,
			AveragePrice:   optional(r.AveragePrice),
			StdDeviation:   optional(r.StdDeviation),
			FluctuationPct: optional(r.FluctuationPct),
			LastClose:      optional(r.LastClose),
			LastMA:         optional(r.LastMA),
			LastRSI:        optional(r.LastRSI),
			LastMACD:       optional(r.LastMACD),
			LastSignal:     optional(r.LastSignal),
			Alert:          r.Alert,
			ComputedAt:     r.ComputedAt,
		})
	}
	return resp
}
