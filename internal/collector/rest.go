package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"time"

	"ORBSentinel/internal/model"
)

// RESTFetcher implements Fetcher against a JSON bars endpoint:
//
//	GET {base}/api/v1/bars?symbol=QQQ&interval=5m&range=15d
//
// returning an array of {timestamp, open, high, low, close, volume}.
type RESTFetcher struct {
	BaseURL string
	APIKey  string

	http *getter
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, requestsPerSecond float64) *RESTFetcher {
	g := newGetter(proxyURL, requestsPerSecond)
	if apiKey != "" {
		g.header.Set("Authorization", "Bearer "+apiKey)
	}
	return &RESTFetcher{BaseURL: baseURL, APIKey: apiKey, http: g}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars endpoint. Nulls decode to NaN.
type restBar struct {
	Timestamp int64    `json:"timestamp"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    *float64 `json:"volume"`
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (f *RESTFetcher) FetchIntraday(ctx context.Context, symbol, interval, lookback string) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("range", lookback)
	endpoint := fmt.Sprintf("%s/api/v1/bars?%s", f.BaseURL, q.Encode())

	body, err := f.http.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}
	var raw []restBar
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   orNaN(rb.Open),
			High:   orNaN(rb.High),
			Low:    orNaN(rb.Low),
			Close:  orNaN(rb.Close),
			Volume: orNaN(rb.Volume),
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
