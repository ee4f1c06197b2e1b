package collector

import (
	"context"
	"errors"
	"time"

	"github.com/dmoloce/stock-ta-ai/internal/model"
)

// ErrNoData is returned when a provider has no bars for the requested range.
var ErrNoData = errors.New("no data returned")

// Fetcher defines the interface for fetching daily market data.
// start is inclusive, end is exclusive.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}
