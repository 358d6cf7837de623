package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ORBSentinel/internal/model"
)

// MockFetcher returns fixed series per symbol for development and testing.
type MockFetcher struct {
	mu     sync.Mutex
	Series map[string][]model.OHLCV
	Errs   map[string]error
	Calls  []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchIntraday(_ context.Context, symbol, _, _ string) ([]model.OHLCV, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, symbol)
	if err := m.Errs[symbol]; err != nil {
		return nil, err
	}
	return m.Series[symbol], nil
}

// Symbols names the three instruments a cycle needs.
type Symbols struct {
	Primary    string
	Volatility string
	Sector     string
}

// Collector fetches the primary, volatility and sector series for one cycle.
type Collector struct {
	Fetcher  Fetcher
	Symbols  Symbols
	Interval string
	Lookback string
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbols Symbols, interval, lookback string) *Collector {
	if interval == "" {
		interval = "5m"
	}
	if lookback == "" {
		lookback = "15d"
	}
	return &Collector{Fetcher: fetcher, Symbols: symbols, Interval: interval, Lookback: lookback}
}

// Collect fetches all three series. Any failed fetch fails the collection.
func (c *Collector) Collect(ctx context.Context) (*model.MarketData, error) {
	data := &model.MarketData{}
	targets := []struct {
		kind   string
		symbol string
		dst    *[]model.OHLCV
	}{
		{"primary", c.Symbols.Primary, &data.Primary},
		{"volatility", c.Symbols.Volatility, &data.Volatility},
		{"sector", c.Symbols.Sector, &data.Sector},
	}
	for _, t := range targets {
		start := time.Now()
		bars, err := c.Fetcher.FetchIntraday(ctx, t.symbol, c.Interval, c.Lookback)
		if err != nil {
			return nil, fmt.Errorf("fetch %s series (%s): %w", t.kind, t.symbol, err)
		}
		log.Debug().
			Str("component", "collector").
			Str("fetcher", c.Fetcher.Name()).
			Str("symbol", t.symbol).
			Int("bars", len(bars)).
			Dur("took", time.Since(start)).
			Msg("series fetched")
		*t.dst = bars
	}
	data.FetchedAt = time.Now()
	return data, nil
}
