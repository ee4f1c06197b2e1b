package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dmoloce/stock-ta-ai/internal/indicator"
	"github.com/dmoloce/stock-ta-ai/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price     float64
	DailyData []model.OHLCV
	Err       error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, start, end time.Time) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	return generateMockBars(m.Price, start, end), nil
}

// generateMockBars emits one weekday bar per day in [start, end).
func generateMockBars(basePrice float64, start, end time.Time) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	var bars []model.OHLCV
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; day.Before(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%40-20)*0.002)
		bars = append(bars, model.OHLCV{
			Time:   day,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 + float64(i%5)*10000,
		})
		i++
	}
	return bars
}

// Collector fetches a validated price series for a ticker and date range.
type Collector struct {
	Fetcher Fetcher
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher}
}

// Collect fetches daily bars in [start, end) and checks them against the
// engine's input invariants.
func (c *Collector) Collect(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("start date %s must be before end date %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s..%s: %w", symbol,
			start.Format(time.DateOnly), end.Format(time.DateOnly), ErrNoData)
	}

	series := &model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}
	if err := indicator.Validate(*series); err != nil {
		return nil, err
	}
	log.Info().Str("symbol", symbol).Str("source", c.Fetcher.Name()).Int("bars", len(bars)).Msg("price data loaded")
	return series, nil
}
