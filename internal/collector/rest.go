package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dmoloce/stock-ta-ai/internal/model"
)

// RESTFetcher implements Fetcher against a plain JSON bar endpoint.
type RESTFetcher struct {
	client *resty.Client
}

// NewRESTFetcher creates a fetcher with optional bearer key and proxy.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &RESTFetcher{client: client}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the endpoint.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	var rows []restBar
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"start":  start.Format(time.DateOnly),
			"end":    end.Format(time.DateOnly),
		}).
		SetResult(&rows).
		Get("/api/v1/bars/daily")
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	bars := make([]model.OHLCV, 0, len(rows))
	for _, r := range rows {
		t := time.Unix(r.Timestamp, 0).UTC()
		if t.Before(start) || !t.Before(end) {
			continue
		}
		bars = append(bars, model.OHLCV{
			Time:   t,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return normalizeBars(bars), nil
}
