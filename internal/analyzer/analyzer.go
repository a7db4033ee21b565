// Package analyzer fetches a price series and runs every indicator over it.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"PriceScope/internal/calculator"
	"PriceScope/internal/collector"
	"PriceScope/internal/metrics"
	"PriceScope/internal/model"
)

// Analyzer orchestrates data fetching and indicator computation.
type Analyzer struct {
	Fetcher collector.Fetcher
	Params  model.IndicatorParams
	Log     zerolog.Logger
	Now     func() time.Time
}

// New creates a new Analyzer.
func New(fetcher collector.Fetcher, params model.IndicatorParams, log zerolog.Logger) *Analyzer {
	return &Analyzer{Fetcher: fetcher, Params: params, Log: log, Now: time.Now}
}

// Analyze fetches the requested history and runs the indicators over it.
func (a *Analyzer) Analyze(ctx context.Context, req collector.HistoryRequest) (*model.Analysis, error) {
	start := time.Now()
	defer func() { metrics.AnalysisDuration.Observe(time.Since(start).Seconds()) }()

	series, err := a.Fetcher.FetchHistory(ctx, req)
	if err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues(a.Fetcher.Name()).Inc()
		metrics.AnalysesTotal.WithLabelValues(req.Symbol, "fetch_error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", req.Symbol, err)
	}
	a.Log.Debug().Str("symbol", req.Symbol).Str("span", req.Label()).Int("bars", series.Len()).
		Str("provider", a.Fetcher.Name()).Msg("history fetched")

	res, err := Run(series, req.Label(), a.Params)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(req.Symbol, "error").Inc()
		return nil, fmt.Errorf("analyze %s: %w", req.Symbol, err)
	}
	res.ComputedAt = a.now()

	metrics.AnalysesTotal.WithLabelValues(req.Symbol, "ok").Inc()
	if res.Alert != nil {
		metrics.FluctuationAlertsTotal.WithLabelValues(req.Symbol).Inc()
	}
	a.Log.Info().
		Str("symbol", req.Symbol).
		Str("span", res.Label).
		Float64("average_price", res.Summary.AveragePrice).
		Float64("fluctuation_pct", res.FluctuationPct).
		Bool("alert", res.Alert != nil).
		Strs("skipped", res.Skipped).
		Msg("analysis complete")
	return res, nil
}

func (a *Analyzer) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// Run computes the derived columns and scalars for a series. The series is
// only read: the returned Analysis references it and carries new columns.
// Sizing arguments are checked up front so a misuse error is reported before
// any work starts; the indicator groups then run concurrently. A moving
// average or RSI window longer than the series leaves that column out and
// lists it in Analysis.Skipped; the scalars and MACD are still computed.
func Run(series *model.PriceSeries, label string, p model.IndicatorParams) (*model.Analysis, error) {
	closes, err := calculator.Closes(series)
	if err != nil {
		return nil, err
	}
	if i := series.CheckOrder(); i >= 0 {
		return nil, fmt.Errorf("%w: bar %d (%s) is not after the previous date",
			calculator.ErrInvalidInput, i, series.Bars[i].Date.Format(collector.DateLayout))
	}
	if i := series.FirstNonFinite(); i >= 0 {
		return nil, fmt.Errorf("%w: bar %d has a non-finite close", calculator.ErrInvalidInput, i)
	}
	if err := checkParams(p); err != nil {
		return nil, err
	}

	res := &model.Analysis{Series: series, Label: label, Params: p}
	var fl calculator.Fluctuation

	var g errgroup.Group
	if p.MAWindow <= len(closes) {
		g.Go(func() error {
			ma, err := calculator.MovingAverage(closes, p.MAWindow)
			res.MovingAverage = ma
			return err
		})
	} else {
		res.Skipped = append(res.Skipped, model.ColumnMovingAverage)
	}
	if p.RSIWindow <= len(closes) {
		g.Go(func() error {
			rsi, err := calculator.RSI(closes, p.RSIWindow)
			res.RSI = rsi
			return err
		})
	} else {
		res.Skipped = append(res.Skipped, model.ColumnRSI)
	}
	g.Go(func() error {
		macd, signal, err := calculator.MACD(closes, p.MACDShort, p.MACDLong, p.MACDSignal)
		res.MACD, res.SignalLine = macd, signal
		return err
	})
	g.Go(func() error {
		var err error
		if res.StdDeviation, err = calculator.StdDeviation(closes); err != nil {
			return err
		}
		if res.Summary, err = calculator.Summarize(series); err != nil {
			return err
		}
		fl, err = calculator.CalculateFluctuation(closes, p.FluctuationThreshold)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.FluctuationPct = fl.Percent
	if fl.Exceeded() {
		res.Alert = &model.FluctuationAlert{
			Symbol:    series.Symbol,
			Percent:   fl.Percent,
			Threshold: fl.Threshold,
			Start:     res.Summary.Start,
			End:       res.Summary.End,
		}
	}
	return res, nil
}

func checkParams(p model.IndicatorParams) error {
	if p.MAWindow <= 0 {
		return fmt.Errorf("%w: moving average window %d", calculator.ErrInvalidWindow, p.MAWindow)
	}
	if p.RSIWindow <= 0 {
		return fmt.Errorf("%w: rsi window %d", calculator.ErrInvalidWindow, p.RSIWindow)
	}
	if p.MACDShort <= 0 || p.MACDLong <= 0 || p.MACDSignal <= 0 {
		return fmt.Errorf("%w: macd spans (%d, %d, %d) must be positive",
			calculator.ErrInvalidParameter, p.MACDShort, p.MACDLong, p.MACDSignal)
	}
	if math.IsNaN(p.FluctuationThreshold) {
		return fmt.Errorf("%w: fluctuation threshold is NaN", calculator.ErrInvalidParameter)
	}
	return nil
}
