package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"PriceScope/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewYahooFetcher creates a new Yahoo Finance fetcher. rps <= 0 disables throttling.
func NewYahooFetcher(proxyURL string, rps float64) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client:  newHTTPClient(proxyURL),
		Limiter: newLimiter(rps),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset            int64  `json:"gmtoffset"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

// FetchHistory downloads daily bars for the requested period or date span.
func (f *YahooFetcher) FetchHistory(ctx context.Context, req HistoryRequest) (*model.PriceSeries, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("interval", "1d")
	if req.Period != "" {
		q.Set("range", req.Period)
	} else {
		start, end, _ := req.Dates()
		q.Set("period1", strconv.FormatInt(start.Unix(), 10))
		q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(req.Symbol), q.Encode())

	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: yahoo rate limit: %v", ErrProvider, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo fetch: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo read body: %v", ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo: status %d, body: %s", ErrProvider, resp.StatusCode, truncate(body, 200))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: yahoo decode: %v", ErrProvider, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error: %s", ErrProvider, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo: no data returned for %s", ErrProvider, req.Symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.PriceBar, 0, len(result.Timestamp))
	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)

	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue // skip null bars (holidays etc.)
		}
		t := time.Unix(ts, 0).In(loc)
		bars = append(bars, model.PriceBar{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  *quote.Close[i],
			Volume: at(quote.Volume, i),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return &model.PriceSeries{Symbol: req.Symbol, Bars: dedupeDays(bars), FetchedAt: time.Now()}, nil
}

// exchangeLocation returns the exchange's zone so a session that opens before
// midnight UTC keeps its local trading date.
func exchangeLocation(name string, gmtOffset int64) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if gmtOffset != 0 {
		return time.FixedZone(name, int(gmtOffset))
	}
	return time.UTC
}

// dedupeDays keeps the last bar of each calendar day; Yahoo appends a live
// bar for the current session that can share a date with the last close.
func dedupeDays(bars []model.PriceBar) []model.PriceBar {
	if len(bars) < 2 {
		return bars
	}
	out := bars[:1]
	for _, b := range bars[1:] {
		if b.Date.Equal(out[len(out)-1].Date) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
