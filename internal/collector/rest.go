package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"PriceScope/internal/model"
)

// RESTFetcher implements Fetcher against a JSON bars endpoint:
//
//	GET {base}/api/v1/bars?symbol=AAPL&period=1mo
//	GET {base}/api/v1/bars?symbol=AAPL&start=2022-01-01&end=2022-12-31
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, rps float64) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		Limiter: newLimiter(rps),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RESTFetcher) FetchHistory(ctx context.Context, req HistoryRequest) (*model.PriceSeries, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("symbol", req.Symbol)
	if req.Period != "" {
		q.Set("period", req.Period)
	} else {
		q.Set("start", req.Start)
		q.Set("end", req.End)
	}
	endpoint := fmt.Sprintf("%s/api/v1/bars?%s", f.BaseURL, q.Encode())

	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rest rate limit: %v", ErrProvider, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch bars: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: fetch bars: status %d, body: %s", ErrProvider, resp.StatusCode, truncate(body, 200))
	}

	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode bars: %v", ErrProvider, err)
	}
	bars := make([]model.PriceBar, len(raw))
	for i, rb := range raw {
		t := time.Unix(rb.Timestamp, 0).UTC()
		bars[i] = model.PriceBar{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return &model.PriceSeries{Symbol: req.Symbol, Bars: bars, FetchedAt: time.Now()}, nil
}
