package recorder

import "github.com/dmoloce/stock-ta-ai/internal/model"

// Recorder persists analysis history.
type Recorder interface {
	RecordAnalysis(rec *model.AnalysisRecord) error
	// RecentAnalyses returns the newest records first. An empty symbol matches all.
	RecentAnalyses(symbol string, limit int) ([]model.AnalysisRecord, error)
	Close() error
}
