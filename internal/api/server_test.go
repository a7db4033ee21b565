package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceScope/internal/analyzer"
	"PriceScope/internal/calculator"
	"PriceScope/internal/collector"
	"PriceScope/internal/model"
	"PriceScope/internal/recorder"
)

type fakeRunner struct {
	closes []float64
	err    error
	last   collector.HistoryRequest
}

func (f *fakeRunner) AnalyzeAndRecord(_ context.Context, req collector.HistoryRequest) (*model.Analysis, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	series := &model.PriceSeries{Symbol: req.Symbol}
	d0 := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for i, c := range f.closes {
		series.Bars = append(series.Bars, model.PriceBar{Date: d0.AddDate(0, 0, i), Close: c, Volume: 10})
	}
	p := model.DefaultIndicatorParams()
	p.MAWindow, p.RSIWindow = 3, 2
	return analyzer.Run(series, req.Label(), p)
}

type fakeHistory struct {
	runs      []recorder.RunRecord
	err       error
	gotSymbol string
	gotLimit  int
}

func (f *fakeHistory) RecentRuns(symbol string, limit int) ([]recorder.RunRecord, error) {
	f.gotSymbol, f.gotLimit = symbol, limit
	return f.runs, f.err
}

func newTestServer(runner Runner, history HistoryStore) http.Handler {
	return NewServer(runner, history, "1mo", zerolog.Nop()).Routes()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(&fakeRunner{}, &fakeHistory{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(&fakeRunner{}, &fakeHistory{}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestGetAnalysis(t *testing.T) {
	runner := &fakeRunner{closes: []float64{10, 20, 30, 40, 50}}
	rec := get(t, newTestServer(runner, &fakeHistory{}), "/api/v1/analysis/aapl")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, collector.HistoryRequest{Symbol: "AAPL", Period: "1mo"}, runner.last)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, "1mo", body["label"])
	assert.Equal(t, 400.0, body["fluctuation_pct"])
	assert.NotNil(t, body["alert"])
	assert.Equal(t, map[string]any{"average_price": 30.0, "start": "2022-01-03", "end": "2022-01-07"}, body["summary"])

	rows := body["rows"].([]any)
	require.Len(t, rows, 5)
	first := rows[0].(map[string]any)
	assert.Equal(t, "2022-01-03", first["date"])
	assert.Nil(t, first["moving_average"])
	assert.Nil(t, first["rsi"])
	assert.Equal(t, 0.0, first["open"])
	last := rows[4].(map[string]any)
	assert.Equal(t, 40.0, last["moving_average"])
	assert.Equal(t, 100.0, last["rsi"])
}

func TestGetAnalysis_DateRange(t *testing.T) {
	runner := &fakeRunner{closes: []float64{10, 10.1, 10.2}}
	rec := get(t, newTestServer(runner, &fakeHistory{}), "/api/v1/analysis/MSFT?start=2022-01-01&end=2022-02-01")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2022-01-01_to_2022-02-01", runner.last.Label())

	var body AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Alert)
}

func TestGetAnalysis_Errors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		err    error
		closes []float64
		status int
		code   string
	}{
		{"bad period", "/api/v1/analysis/AAPL?period=7w", nil, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad date", "/api/v1/analysis/AAPL?start=2022-13-01&end=2022-02-01", nil, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"start only", "/api/v1/analysis/AAPL?start=2022-01-01", nil, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"reversed dates", "/api/v1/analysis/AAPL?start=2022-02-01&end=2022-01-01", nil, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"nan close", "/api/v1/analysis/AAPL", nil, []float64{1, math.NaN(), 3}, http.StatusBadRequest, "INVALID_ANALYSIS_INPUT"},
		{"path in symbol", "/api/v1/analysis/..%2F..%2Fetc", nil, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"markup in symbol", "/api/v1/analysis/A%3Cb%3E", nil, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"zero close", "/api/v1/analysis/AAPL", nil, []float64{0, 1, 2, 3}, http.StatusUnprocessableEntity, "DEGENERATE_SERIES"},
		{"provider down", "/api/v1/analysis/AAPL", fmt.Errorf("fetch AAPL: %w", collector.ErrProvider), nil, http.StatusBadGateway, "PROVIDER_ERROR"},
		{"unexpected", "/api/v1/analysis/AAPL", errors.New("boom"), nil, http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, newTestServer(&fakeRunner{closes: tc.closes, err: tc.err}, &fakeHistory{}), tc.path)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.ErrorCode)
			assert.Equal(t, tc.status, body.StatusCode)
		})
	}
}

func TestGetAnalysis_ShortSeriesSkipsColumns(t *testing.T) {
	runner := &fakeRunner{closes: []float64{10, 12}}
	rec := get(t, newTestServer(runner, &fakeHistory{}), "/api/v1/analysis/AAPL?period=1d")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []any{"moving_average"}, body["skipped_columns"])
	assert.Equal(t, 20.0, body["fluctuation_pct"])
	row := body["rows"].([]any)[1].(map[string]any)
	assert.Nil(t, row["moving_average"])
	assert.NotNil(t, row["macd"])
}

func TestGetHistory(t *testing.T) {
	history := &fakeHistory{runs: []recorder.RunRecord{{
		ID: 3, Symbol: "AAPL", Label: "1mo", Bars: 21, AveragePrice: 150.5, LastRSI: math.NaN(), Alert: true,
	}}}
	h := newTestServer(&fakeRunner{}, history)

	rec := get(t, h, "/api/v1/history/aapl?limit=5")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "AAPL", history.gotSymbol)
	assert.Equal(t, 5, history.gotLimit)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	runs := body["runs"].([]any)
	require.Len(t, runs, 1)
	run := runs[0].(map[string]any)
	assert.Equal(t, 150.5, run["average_price"])
	assert.Nil(t, run["last_rsi"])
	assert.Equal(t, true, run["alert"])

	get(t, h, "/api/v1/history/aapl")
	assert.Equal(t, defaultHistoryLimit, history.gotLimit)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/history/aapl?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/history/aapl?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/history/aapl?limit=101").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/history/a%20b").Code)

	history.err = errors.New("database is locked")
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/api/v1/history/aapl").Code)
}

func TestMapError_CalculatorKinds(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, mapError(calculator.ErrInvalidSpan).StatusCode)
	assert.Equal(t, http.StatusBadRequest, mapError(fmt.Errorf("x: %w", calculator.ErrInvalidParameter)).StatusCode)
	assert.Equal(t, http.StatusBadRequest, mapError(fmt.Errorf("fetch: %w", collector.ErrInvalidRequest)).StatusCode)
}
