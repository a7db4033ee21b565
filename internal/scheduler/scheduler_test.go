package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceScope/internal/analyzer"
	"PriceScope/internal/collector"
	"PriceScope/internal/model"
	"PriceScope/internal/notifier"
	"PriceScope/internal/recorder"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) SendWithRetry(ctx context.Context, text string, _ int) error {
	return f.Send(ctx, text)
}

type fakeRecorder struct {
	recorder.NoopRecorder
	runs   []*model.Analysis
	alerts []int64
	err    error
}

func (f *fakeRecorder) RecordAnalysis(a *model.Analysis) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.runs = append(f.runs, a)
	return int64(len(f.runs)), nil
}

func (f *fakeRecorder) RecordAlert(runID int64, _ *model.FluctuationAlert) error {
	f.alerts = append(f.alerts, runID)
	return nil
}

func (f *fakeRecorder) RecentRuns(symbol string, limit int) ([]recorder.RunRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []recorder.RunRecord{{Symbol: symbol, Label: "1mo", AveragePrice: 101, ComputedAt: time.Unix(0, 0).UTC()}}, nil
}

func bars(closes ...float64) []model.PriceBar {
	d0 := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	out := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = model.PriceBar{Date: d0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func trending(n int, start, step float64) []model.PriceBar {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return bars(closes...)
}

func newTestScheduler(t *testing.T, fetcher collector.Fetcher, opts Options) (*Scheduler, *fakeNotifier, *fakeRecorder) {
	t.Helper()
	n := &fakeNotifier{}
	rec := &fakeRecorder{}
	an := analyzer.New(fetcher, model.DefaultIndicatorParams(), zerolog.Nop())
	return NewScheduler(context.Background(), an, n, rec, zerolog.Nop(), opts), n, rec
}

func TestRunNow_AlertsAndRecords(t *testing.T) {
	fetcher := &collector.MockFetcher{Bars: trending(30, 100, 1)}
	dir := t.TempDir()
	s, n, rec := newTestScheduler(t, fetcher, Options{
		Watchlist: []string{"AAPL", "MSFT"}, Period: "1mo", ExportDir: dir, ExportFormat: "csv",
	})

	s.RunNow()

	assert.Equal(t, 2, fetcher.Calls)
	require.Len(t, rec.runs, 2)
	assert.Equal(t, []int64{1, 2}, rec.alerts)
	require.Len(t, n.sent, 2)
	assert.Contains(t, n.sent[0], "AAPL moved 29%")
	assert.Contains(t, n.sent[1], "MSFT moved 29%")

	_, err := os.Stat(filepath.Join(dir, "AAPL_1mo_stock_data.csv"))
	assert.NoError(t, err)
}

func TestRunNow_QuietSeriesSendsNothing(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i%2)
	}
	fetcher := &collector.MockFetcher{Bars: bars(closes...)}
	s, n, rec := newTestScheduler(t, fetcher, Options{Watchlist: []string{"AAPL"}, Period: "1mo"})

	s.RunNow()

	assert.Len(t, rec.runs, 1)
	assert.Empty(t, rec.alerts)
	assert.Empty(t, n.sent)
}

func TestRunNow_FetchFailureIsReported(t *testing.T) {
	fetcher := &collector.MockFetcher{Err: errors.New("timeout")}
	s, n, rec := newTestScheduler(t, fetcher, Options{Watchlist: []string{"AAPL"}, Period: "1mo"})

	s.RunNow()

	assert.Empty(t, rec.runs)
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "Analysis of AAPL failed")
}

func TestRunNow_FailureTextIsEscaped(t *testing.T) {
	fetcher := &collector.MockFetcher{Err: errors.New("status 503, body: <html><body>Service Unavailable</body></html>")}
	s, n, _ := newTestScheduler(t, fetcher, Options{Watchlist: []string{"AAPL"}, Period: "1mo"})

	s.RunNow()

	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "&lt;html&gt;&lt;body&gt;Service Unavailable")
	assert.NotContains(t, n.sent[0], "<html>")

	reply := s.HandleCommand(context.Background(), "/analyze AAPL")
	assert.Contains(t, reply, "&lt;/html&gt;")
	assert.NotContains(t, reply, "<body>")
}

func TestAnalyzeAndRecord_RecorderFailureKeepsResult(t *testing.T) {
	fetcher := &collector.MockFetcher{Bars: trending(30, 100, 1)}
	s, _, rec := newTestScheduler(t, fetcher, Options{})
	rec.err = errors.New("disk full")

	res, err := s.AnalyzeAndRecord(context.Background(), collector.HistoryRequest{Symbol: "AAPL", Period: "1mo"})
	require.NoError(t, err)
	assert.NotNil(t, res.Alert)
	assert.Empty(t, rec.alerts)
}

func TestHandleCommand(t *testing.T) {
	fetcher := &collector.MockFetcher{Bars: trending(30, 100, 1)}
	s, _, rec := newTestScheduler(t, fetcher, Options{Period: "1mo"})
	ctx := context.Background()

	reply := s.HandleCommand(ctx, "/analyze aapl")
	assert.Contains(t, reply, "<b>AAPL</b> | 1mo | 30 bars")
	require.Len(t, rec.runs, 1)

	reply = s.HandleCommand(ctx, "/analyze@PriceScopeBot MSFT 3mo")
	assert.Contains(t, reply, "<b>MSFT</b> | 3mo")

	assert.Contains(t, s.HandleCommand(ctx, "/analyze ../etc"), "malformed symbol")
	assert.Contains(t, s.HandleCommand(ctx, "/analyze AAPL 7w"), "unsupported period &#34;7w&#34;")
	assert.Equal(t, "Usage: /analyze SYMBOL [PERIOD]", s.HandleCommand(ctx, "/analyze"))
	assert.Contains(t, s.HandleCommand(ctx, "/history aapl"), "<b>AAPL history</b>")
	assert.Equal(t, "Usage: /history SYMBOL", s.HandleCommand(ctx, "/history"))
	assert.Equal(t, notifier.HelpText, s.HandleCommand(ctx, "/start"))
	assert.Equal(t, notifier.HelpText, s.HandleCommand(ctx, "  "))

	rec.err = errors.New("locked")
	assert.Contains(t, s.HandleCommand(ctx, "/history AAPL"), "Could not load history: locked")
}

func TestRegister(t *testing.T) {
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{}, Options{})
	assert.NoError(t, s.Register("0 30 22 * * 1-5"))
	assert.Error(t, s.Register("not a cron"))
	assert.Len(t, s.Cron.Entries(), 1)
}
