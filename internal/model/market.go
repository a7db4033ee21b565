package model

import (
	"math"
	"time"
)

// PriceBar represents a single dated price observation.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the daily history of one instrument, ordered by date ascending.
// The engine only reads it; derived values live in Analysis.
type PriceSeries struct {
	Symbol    string
	Bars      []PriceBar
	FetchedAt time.Time
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes copies the close column out of the bars.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// FirstDate returns the earliest bar date, or the zero time for an empty series.
func (s *PriceSeries) FirstDate() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Bars[0].Date
}

// LastDate returns the latest bar date, or the zero time for an empty series.
func (s *PriceSeries) LastDate() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Date
}

// CheckOrder reports the index of the first bar whose date does not strictly
// follow its predecessor, or -1 when the series is properly ordered.
func (s *PriceSeries) CheckOrder() int {
	for i := 1; i < s.Len(); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return i
		}
	}
	return -1
}

// FirstNonFinite returns the index of the first bar with a NaN or infinite close, or -1.
func (s *PriceSeries) FirstNonFinite() int {
	for i, b := range s.Bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			return i
		}
	}
	return -1
}
