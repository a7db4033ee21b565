package analyzer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceScope/internal/calculator"
	"PriceScope/internal/collector"
	"PriceScope/internal/model"
)

func day(d int) time.Time { return time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d) }

func seriesOf(closes ...float64) *model.PriceSeries {
	s := &model.PriceSeries{Symbol: "AAPL"}
	for i, c := range closes {
		s.Bars = append(s.Bars, model.PriceBar{Date: day(i), Close: c})
	}
	return s
}

func smallParams() model.IndicatorParams {
	p := model.DefaultIndicatorParams()
	p.MAWindow = 3
	p.RSIWindow = 2
	return p
}

func TestRun(t *testing.T) {
	series := seriesOf(10, 20, 30, 40, 50)
	res, err := Run(series, "1mo", smallParams())
	require.NoError(t, err)

	assert.Same(t, series, res.Series)
	assert.Equal(t, "1mo", res.Label)
	for _, name := range model.DerivedColumns() {
		assert.Len(t, res.Column(name), series.Len(), name)
	}
	assert.True(t, math.IsNaN(res.MovingAverage[1]))
	assert.Equal(t, []float64{20, 30, 40}, res.MovingAverage[2:])
	assert.Equal(t, 100.0, res.RSI[4])
	assert.Equal(t, 0.0, res.SignalLine[0])

	assert.Equal(t, 30.0, res.Summary.AveragePrice)
	assert.Equal(t, day(0), res.Summary.Start)
	assert.Equal(t, day(4), res.Summary.End)
	assert.InDelta(t, 15.811388300841896, res.StdDeviation, 1e-12)
	assert.Equal(t, 400.0, res.FluctuationPct)

	require.NotNil(t, res.Alert)
	assert.Equal(t, "AAPL", res.Alert.Symbol)
	assert.Equal(t, 400.0, res.Alert.Percent)
	assert.Equal(t, 5.0, res.Alert.Threshold)

	// the caller's close column is untouched
	assert.Equal(t, []float64{10, 20, 30, 40, 50}, series.Closes())
}

func TestRun_NoAlertBelowThreshold(t *testing.T) {
	res, err := Run(seriesOf(100, 101, 102, 101, 100), "5d", smallParams())
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.FluctuationPct)
	assert.Nil(t, res.Alert)
}

func TestRun_FlatSeries(t *testing.T) {
	res, err := Run(seriesOf(10, 10, 10, 10, 10), "5d", smallParams())
	require.NoError(t, err)
	for i, v := range res.RSI {
		assert.True(t, math.IsNaN(v), "rsi[%d] must stay undefined", i)
	}
	assert.Equal(t, 0.0, res.StdDeviation)
	assert.Equal(t, 0.0, res.FluctuationPct)
	assert.Nil(t, res.Alert)
}

func TestRun_ShortSeriesSkipsWindowedColumns(t *testing.T) {
	series := seriesOf(10, 11, 12, 11, 10)
	res, err := Run(series, "5d", model.DefaultIndicatorParams())
	require.NoError(t, err)

	assert.Equal(t, []string{model.ColumnRSI}, res.Skipped)
	assert.True(t, res.IsSkipped(model.ColumnRSI))
	assert.False(t, res.IsSkipped(model.ColumnMovingAverage))
	assert.Nil(t, res.RSI)
	require.Len(t, res.MovingAverage, 5)
	assert.Equal(t, 10.8, res.MovingAverage[4])
	assert.Len(t, res.MACD, 5)
	assert.Len(t, res.SignalLine, 5)

	assert.Equal(t, 10.8, res.Summary.AveragePrice)
	assert.Equal(t, 20.0, res.FluctuationPct)
	require.NotNil(t, res.Alert)

	one, err := Run(seriesOf(42), "1d", model.DefaultIndicatorParams())
	require.NoError(t, err)
	assert.Equal(t, []string{model.ColumnMovingAverage, model.ColumnRSI}, one.Skipped)
	assert.Equal(t, 42.0, one.Summary.AveragePrice)
	assert.True(t, math.IsNaN(one.StdDeviation))
	assert.Equal(t, 0.0, one.FluctuationPct)
	assert.Equal(t, []float64{0}, one.MACD)
}

func TestAnalyze_ShortPeriods(t *testing.T) {
	for _, period := range []string{"1d", "5d"} {
		t.Run(period, func(t *testing.T) {
			a := New(&collector.MockFetcher{}, model.DefaultIndicatorParams(), zerolog.Nop())
			res, err := a.Analyze(context.Background(), collector.HistoryRequest{Symbol: "AAPL", Period: period})
			require.NoError(t, err)
			assert.Contains(t, res.Skipped, model.ColumnRSI)
			assert.False(t, math.IsNaN(res.Summary.AveragePrice))
			assert.Len(t, res.MACD, res.Series.Len())
		})
	}
}

func TestRun_Errors(t *testing.T) {
	unordered := seriesOf(1, 2, 3)
	unordered.Bars[2].Date = day(0)
	withNaN := seriesOf(1, math.NaN(), 3)

	params := smallParams()
	zeroRSI := params
	zeroRSI.RSIWindow = 0
	badMACD := params
	badMACD.MACDSignal = 0

	tests := []struct {
		name   string
		series *model.PriceSeries
		params model.IndicatorParams
		want   error
	}{
		{"nil series", nil, params, calculator.ErrInvalidInput},
		{"empty series", &model.PriceSeries{}, params, calculator.ErrInvalidInput},
		{"unordered dates", unordered, params, calculator.ErrInvalidInput},
		{"nan close", withNaN, params, calculator.ErrInvalidInput},
		{"non-positive window", seriesOf(1, 2, 3), zeroRSI, calculator.ErrInvalidWindow},
		{"non-positive signal span", seriesOf(1, 2, 3), badMACD, calculator.ErrInvalidParameter},
		{"zero minimum", seriesOf(0, 2, 3), params, calculator.ErrDegenerateSeries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.series, "x", tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAnalyze(t *testing.T) {
	fetcher := &collector.MockFetcher{Bars: seriesOf(10, 20, 30, 40, 50).Bars}
	a := New(fetcher, smallParams(), zerolog.Nop())
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	a.Now = func() time.Time { return fixed }

	res, err := a.Analyze(context.Background(), collector.HistoryRequest{Symbol: "AAPL", Period: "5d"})
	require.NoError(t, err)
	assert.Equal(t, "5d", res.Label)
	assert.Equal(t, fixed, res.ComputedAt)
	assert.NotNil(t, res.Alert)
}

func TestAnalyze_ProviderError(t *testing.T) {
	a := New(&collector.MockFetcher{Err: errors.New("timeout")}, smallParams(), zerolog.Nop())
	_, err := a.Analyze(context.Background(), collector.HistoryRequest{Symbol: "AAPL", Period: "5d"})
	assert.ErrorIs(t, err, collector.ErrProvider)
}
