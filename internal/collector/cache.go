package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/dmoloce/stock-ta-ai/internal/model"
)

// CachedFetcher memoizes another Fetcher's results for a TTL.
type CachedFetcher struct {
	next  Fetcher
	store *cache.Cache
}

// NewCachedFetcher wraps next with an in-memory cache.
func NewCachedFetcher(next Fetcher, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		next:  next,
		store: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedFetcher) Name() string { return c.next.Name() }

func (c *CachedFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	key := fmt.Sprintf("%s_history_%s_%d_%d", c.next.Name(), symbol, start.Unix(), end.Unix())
	if v, ok := c.store.Get(key); ok {
		log.Debug().Str("key", key).Msg("bar cache hit")
		return cloneBars(v.([]model.OHLCV)), nil
	}
	bars, err := c.next.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		c.store.SetDefault(key, cloneBars(bars))
	}
	return bars, nil
}

func cloneBars(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, len(bars))
	copy(out, bars)
	return out
}
