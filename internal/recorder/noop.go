package recorder

import "PriceScope/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ *model.Analysis) (int64, error)      { return 0, nil }
func (n *NoopRecorder) RecordAlert(_ int64, _ *model.FluctuationAlert) error { return nil }
func (n *NoopRecorder) RecentRuns(_ string, _ int) ([]RunRecord, error)      { return nil, nil }
func (n *NoopRecorder) Close() error                                         { return nil }
