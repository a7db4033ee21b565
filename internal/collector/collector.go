package collector

import (
	"context"
	"fmt"
	"time"

	"PriceScope/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.PriceBar
	Err   error
	Now   func() time.Time

	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(_ context.Context, req HistoryRequest) (*model.PriceSeries, error) {
	m.Calls++
	if m.Err != nil {
		return nil, fmt.Errorf("%w: mock: %v", ErrProvider, m.Err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	bars := m.Bars
	if bars == nil {
		days := PeriodDays(req.Period, now())
		if req.Period == "" {
			start, end, _ := req.Dates()
			days = int(end.Sub(start).Hours() / 24)
		}
		bars = generateMockBars(m.Price, days, now())
	}
	return &model.PriceSeries{Symbol: req.Symbol, Bars: bars, FetchedAt: now()}, nil
}

// generateMockBars produces a gently oscillating daily series ending yesterday.
func generateMockBars(basePrice float64, count int, now time.Time) []model.PriceBar {
	if basePrice <= 0 {
		basePrice = 100
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001 + 0.01*float64((i%7)-3)/3)
		bars[i] = model.PriceBar{
			Date:   today.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
