package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmoloce/stock-ta-ai/internal/indicator"
	"github.com/dmoloce/stock-ta-ai/internal/model"
)

type countingFetcher struct {
	MockFetcher
	calls int
}

func (c *countingFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	c.calls++
	return c.MockFetcher.FetchDailyBars(ctx, symbol, start, end)
}

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mar1 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func TestCollect_MockSeriesIsValid(t *testing.T) {
	c := NewCollector(&MockFetcher{Price: 150})
	series, err := c.Collect(context.Background(), " aapl ", jan1, mar1)
	if err != nil {
		t.Fatal(err)
	}
	if series.Symbol != "AAPL" {
		t.Errorf("symbol: got %q", series.Symbol)
	}
	if series.Len() < 40 {
		t.Errorf("expected about two months of weekdays, got %d", series.Len())
	}
	for _, b := range series.Bars {
		if wd := b.Time.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("weekend bar %v", b.Time)
		}
	}
}

func TestCollect_EmptyResult(t *testing.T) {
	c := NewCollector(&MockFetcher{DailyData: []model.OHLCV{}})
	_, err := c.Collect(context.Background(), "AAPL", jan1, mar1)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestCollect_RejectsBadRange(t *testing.T) {
	c := NewCollector(&MockFetcher{})
	if _, err := c.Collect(context.Background(), "AAPL", mar1, jan1); err == nil {
		t.Error("expected error for start after end")
	}
	if _, err := c.Collect(context.Background(), "", jan1, mar1); err == nil {
		t.Error("expected error for empty ticker")
	}
}

func TestCollect_InvalidBars(t *testing.T) {
	c := NewCollector(&MockFetcher{DailyData: []model.OHLCV{
		{Time: jan1, Open: 1, High: 1, Low: 1, Close: 1},
		{Time: jan1, Open: 1, High: 1, Low: 1, Close: 1},
	}})
	_, err := c.Collect(context.Background(), "AAPL", jan1, mar1)
	var inv *indicator.InvalidInputError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestCollect_FetchError(t *testing.T) {
	boom := errors.New("network down")
	c := NewCollector(&MockFetcher{Err: boom})
	if _, err := c.Collect(context.Background(), "AAPL", jan1, mar1); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func TestCachedFetcher(t *testing.T) {
	inner := &countingFetcher{MockFetcher: MockFetcher{Price: 10}}
	f := NewCachedFetcher(inner, time.Minute)

	a, err := f.FetchDailyBars(context.Background(), "AAPL", jan1, mar1)
	if err != nil {
		t.Fatal(err)
	}
	a[0].Close = -1 // caller mutation must not leak into the cache

	b, err := f.FetchDailyBars(context.Background(), "AAPL", jan1, mar1)
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", inner.calls)
	}
	if b[0].Close <= 0 {
		t.Errorf("cached bars were mutated: %+v", b[0])
	}

	if _, err := f.FetchDailyBars(context.Background(), "MSFT", jan1, mar1); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("different symbol should miss the cache, calls=%d", inner.calls)
	}
}

func TestRESTFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/bars/daily" || r.URL.Query().Get("symbol") != "AAPL" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"timestamp":1704240000,"open":2,"high":3,"low":1,"close":2.5,"volume":10},
			{"timestamp":1704153600,"open":1,"high":2,"low":1,"close":1.5,"volume":20},
			{"timestamp":1710000000,"open":1,"high":2,"low":1,"close":1.5,"volume":20}
		]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "")
	bars, err := f.FetchDailyBars(context.Background(), "AAPL", jan1, mar1)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 in-range bars, got %d", len(bars))
	}
	if !bars[0].Time.Before(bars[1].Time) || bars[0].Close != 1.5 {
		t.Errorf("bars not sorted ascending: %+v", bars)
	}

	_, err = NewRESTFetcher(srv.URL, "wrong", "").FetchDailyBars(context.Background(), "AAPL", jan1, mar1)
	if err == nil {
		t.Error("expected status error")
	}
}
