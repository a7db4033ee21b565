package recorder

import (
	"time"

	"PriceScope/internal/model"
)

// RunRecord is one persisted analysis run. Undefined indicator values read back as NaN.
type RunRecord struct {
	ID             int64
	Symbol         string
	Label          string
	Bars           int
	StartDate      string
	EndDate        string
	AveragePrice   float64
	StdDeviation   float64
	FluctuationPct float64
	LastClose      float64
	LastMA         float64
	LastRSI        float64
	LastMACD       float64
	LastSignal     float64
	Alert          bool
	ComputedAt     time.Time
}

// Recorder persists analysis history.
type Recorder interface {
	RecordAnalysis(a *model.Analysis) (int64, error)
	RecordAlert(runID int64, alert *model.FluctuationAlert) error
	RecentRuns(symbol string, limit int) ([]RunRecord, error)
	Close() error
}
