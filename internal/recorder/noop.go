package recorder

import "github.com/dmoloce/stock-ta-ai/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ *model.AnalysisRecord) error { return nil }
func (n *NoopRecorder) RecentAnalyses(_ string, _ int) ([]model.AnalysisRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
