// Package session holds the state of one interactive analysis session: the
// fetched price series, the selected indicators and their overlays.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dmoloce/stock-ta-ai/internal/analyst"
	"github.com/dmoloce/stock-ta-ai/internal/chart"
	"github.com/dmoloce/stock-ta-ai/internal/collector"
	"github.com/dmoloce/stock-ta-ai/internal/indicator"
	"github.com/dmoloce/stock-ta-ai/internal/model"
	"github.com/dmoloce/stock-ta-ai/internal/recorder"
)

// ErrNoData is returned by operations that need a fetched series.
var ErrNoData = errors.New("no stock data loaded; fetch data first")

// Snapshot is an immutable view of the session for rendering.
type Snapshot struct {
	Series     model.PriceSeries `json:"series"`
	Indicators []indicator.Kind  `json:"indicators"`
	Overlays   []model.Overlay   `json:"overlays"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
}

// Session is safe for concurrent use.
type Session struct {
	collector *collector.Collector
	analyst   analyst.Analyst
	recorder  recorder.Recorder
	chartOpts chart.Options

	mu         sync.RWMutex
	series     *model.PriceSeries
	start, end time.Time
	kinds      []indicator.Kind
	overlays   []model.Overlay
}

// New creates a session with SMA20 selected.
func New(col *collector.Collector, a analyst.Analyst, rec recorder.Recorder, opts chart.Options) *Session {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Session{
		collector: col,
		analyst:   a,
		recorder:  rec,
		chartOpts: opts,
		kinds:     []indicator.Kind{indicator.SMA20},
	}
}

// Fetch loads a new series, replacing the current one only on success.
func (s *Session) Fetch(ctx context.Context, ticker string, start, end time.Time) (*model.PriceSeries, error) {
	series, err := s.collector.Collect(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	overlays, err := indicator.ComputeAll(s.kinds, *series)
	if err != nil {
		return nil, err
	}
	s.series, s.start, s.end, s.overlays = series, start, end, overlays
	return series, nil
}

// Select replaces the indicator selection and recomputes overlays. On any
// error the previous selection is kept.
func (s *Session) Select(names []string) ([]indicator.Kind, error) {
	kinds, err := indicator.ParseKinds(names)
	if err != nil {
		return nil, err
	}
	kinds = dedupe(kinds)

	s.mu.Lock()
	defer s.mu.Unlock()
	var overlays []model.Overlay
	if s.series != nil {
		if overlays, err = indicator.ComputeAll(kinds, *s.series); err != nil {
			return nil, err
		}
	}
	s.kinds, s.overlays = kinds, overlays
	return append([]indicator.Kind(nil), kinds...), nil
}

// Snapshot returns the current series and overlays.
func (s *Session) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.series == nil {
		return nil, ErrNoData
	}
	return &Snapshot{
		Series:     *s.series,
		Indicators: append([]indicator.Kind(nil), s.kinds...),
		Overlays:   append([]model.Overlay(nil), s.overlays...),
		Start:      s.start,
		End:        s.end,
	}, nil
}

// Chart renders the current snapshot to PNG.
func (s *Session) Chart() ([]byte, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return chart.Render(snap.Series, snap.Overlays, s.chartOpts)
}

// Analyze renders the chart, asks the analyst for a recommendation and
// records the result. A recording failure is logged, not returned.
func (s *Session) Analyze(ctx context.Context) (*model.AnalysisRecord, []byte, error) {
	if s.analyst == nil {
		return nil, nil, errors.New("no analyst configured")
	}
	snap, err := s.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	img, err := chart.Render(snap.Series, snap.Overlays, s.chartOpts)
	if err != nil {
		return nil, nil, err
	}

	started := time.Now()
	text, err := s.analyst.Analyze(ctx, img)
	if err != nil {
		return nil, img, fmt.Errorf("ai analysis: %w", err)
	}

	names := make([]string, len(snap.Indicators))
	for i, k := range snap.Indicators {
		names[i] = k.String()
	}
	bars := snap.Series.Bars
	rec := &model.AnalysisRecord{
		CreatedAt:  time.Now(),
		Symbol:     snap.Series.Symbol,
		Start:      snap.Start,
		End:        snap.End,
		Bars:       len(bars),
		LastClose:  bars[len(bars)-1].Close,
		Indicators: names,
		Analyst:    s.analyst.Name(),
		Verdict:    analyst.ParseVerdict(text),
		Response:   text,
	}
	log.Info().Str("symbol", rec.Symbol).Str("verdict", string(rec.Verdict)).
		Dur("took", time.Since(started)).Msg("ai analysis done")

	if err := s.recorder.RecordAnalysis(rec); err != nil {
		log.Error().Err(err).Str("symbol", rec.Symbol).Msg("record analysis")
	}
	return rec, img, nil
}

// History returns recent analyses from the recorder.
func (s *Session) History(symbol string, limit int) ([]model.AnalysisRecord, error) {
	return s.recorder.RecentAnalyses(symbol, limit)
}

func dedupe(kinds []indicator.Kind) []indicator.Kind {
	seen := make(map[indicator.Kind]bool, len(kinds))
	out := kinds[:0]
	for _, k := range kinds {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
