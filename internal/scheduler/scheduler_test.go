package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmoloce/stock-ta-ai/internal/chart"
	"github.com/dmoloce/stock-ta-ai/internal/collector"
	"github.com/dmoloce/stock-ta-ai/internal/model"
)

type stubAnalyst struct{ reply string }

func (a stubAnalyst) Name() string { return "stub" }

func (a stubAnalyst) Analyze(context.Context, []byte) (string, error) { return a.reply, nil }

type memRecorder struct {
	mu   sync.Mutex
	recs []model.AnalysisRecord
}

func (m *memRecorder) RecordAnalysis(rec *model.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append([]model.AnalysisRecord{*rec}, m.recs...)
	return nil
}

func (m *memRecorder) RecentAnalyses(symbol string, limit int) ([]model.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AnalysisRecord
	for _, r := range m.recs {
		if (symbol == "" || r.Symbol == symbol) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRecorder) Close() error { return nil }

type fakeMessenger struct {
	texts  []string
	photos int
}

func (f *fakeMessenger) SendWithRetry(_ context.Context, text string, _ int) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendPhotoWithRetry(context.Context, []byte, string, int) error {
	f.photos++
	return nil
}

func newTestScheduler(f collector.Fetcher, m Messenger) (*Scheduler, *memRecorder) {
	rec := &memRecorder{}
	s := NewScheduler(context.Background(), collector.NewCollector(f), stubAnalyst{reply: "SELL now"}, rec, m, Options{
		Indicators:   []string{"SMA20", "VWAP"},
		LookbackDays: 90,
		Chart:        chart.Options{Width: 400, Height: 300},
	})
	s.now = func() time.Time { return time.Date(2024, 6, 14, 18, 0, 0, 0, time.UTC) }
	return s, rec
}

func TestAnalyze_TrailingWindow(t *testing.T) {
	s, rec := newTestScheduler(&collector.MockFetcher{Price: 50}, nil)
	got, img, err := s.Analyze(context.Background(), "msft")
	if err != nil {
		t.Fatal(err)
	}
	if len(img) == 0 {
		t.Error("expected a chart image")
	}
	wantEnd := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if !got.End.Equal(wantEnd) || !got.Start.Equal(wantEnd.AddDate(0, 0, -90)) {
		t.Errorf("window = %s..%s", got.Start, got.End)
	}
	if got.Symbol != "MSFT" || got.Verdict != model.VerdictSell {
		t.Errorf("unexpected record %+v", got)
	}
	if len(rec.recs) != 1 {
		t.Errorf("expected analysis to be recorded")
	}
}

func TestRunWatch_ContinuesAfterFailure(t *testing.T) {
	m := &fakeMessenger{}
	s, rec := newTestScheduler(&collector.MockFetcher{Price: 50}, m)
	s.RunWatch([]string{"AAPL", "", "TSLA"})

	if len(rec.recs) != 2 {
		t.Errorf("expected 2 recorded analyses, got %d", len(rec.recs))
	}
	if m.photos != 2 {
		t.Errorf("expected 2 charts sent, got %d", m.photos)
	}
	failures := 0
	for _, txt := range m.texts {
		if strings.HasPrefix(txt, "❌") {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected one failure notice, got %d in %v", failures, m.texts)
	}
}

func TestRegisterWatch(t *testing.T) {
	s, _ := newTestScheduler(&collector.MockFetcher{}, nil)
	if err := s.RegisterWatch("0 30 22 * * 1-5", []string{"AAPL"}); err != nil {
		t.Fatal(err)
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("expected one cron entry")
	}
	if err := s.RegisterWatch("not a cron", []string{"AAPL"}); err == nil {
		t.Error("expected invalid cron error")
	}
	if err := s.RegisterWatch("0 0 * * * *", nil); err == nil {
		t.Error("expected error for empty watchlist")
	}
}

func TestHandleCommand(t *testing.T) {
	s, _ := newTestScheduler(&collector.MockFetcher{Price: 50}, nil)
	ctx := context.Background()

	reply := s.HandleCommand(ctx, "/analyze aapl")
	if len(reply.Photo) == 0 || !strings.Contains(reply.Caption, "AAPL") || !strings.Contains(reply.Text, "SELL") {
		t.Errorf("unexpected analyze reply: %+v", reply.Caption)
	}

	reply = s.HandleCommand(ctx, "/history AAPL")
	if !strings.Contains(reply.Text, "AAPL") || !strings.Contains(reply.Text, "SELL") {
		t.Errorf("unexpected history reply: %q", reply.Text)
	}

	reply = s.HandleCommand(ctx, "/history MSFT")
	if !strings.Contains(reply.Text, "No analyses recorded for MSFT") {
		t.Errorf("unexpected empty history reply: %q", reply.Text)
	}

	if reply = s.HandleCommand(ctx, "/analyze"); !strings.Contains(reply.Text, "Usage") {
		t.Errorf("missing ticker: %q", reply.Text)
	}
	if reply = s.HandleCommand(ctx, "hello"); !strings.Contains(reply.Text, "/analyze TICKER") {
		t.Errorf("help: %q", reply.Text)
	}
}

func TestHandleCommand_FetchError(t *testing.T) {
	s, _ := newTestScheduler(&collector.MockFetcher{Err: errors.New("boom")}, nil)
	reply := s.HandleCommand(context.Background(), "/analyze AAPL")
	if len(reply.Photo) != 0 || !strings.Contains(reply.Text, "boom") {
		t.Errorf("unexpected reply: %+v", reply)
	}
}
