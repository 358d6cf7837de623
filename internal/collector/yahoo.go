package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"ORBSentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance v8 chart API.
type YahooFetcher struct {
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker

	http    *getter
	breaker *gobreaker.CircuitBreaker
}

// NewYahooFetcher creates a Yahoo Finance fetcher with optional proxy support.
func NewYahooFetcher(proxyURL string, requestsPerSecond float64) *YahooFetcher {
	g := newGetter(proxyURL, requestsPerSecond)
	g.header.Set("User-Agent", "Mozilla/5.0")

	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		SymbolMap: map[string]string{
			"VIX": "^VIX",
		},
		http: g,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "yahoo",
			Timeout: 2 * time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().
					Str("component", "collector").
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state changed")
			},
		}),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// toFloat maps JSON nulls and short arrays to NaN.
func toFloat(vs []interface{}, i int) float64 {
	if i >= len(vs) || vs[i] == nil {
		return math.NaN()
	}
	switch n := vs[i].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return math.NaN()
	}
}

// FetchIntraday downloads bars for symbol over the lookback window, pre and
// post market excluded. Timestamps are returned in UTC.
func (f *YahooFetcher) FetchIntraday(ctx context.Context, symbol, interval, lookback string) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s&includePrePost=false",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), url.QueryEscape(interval), url.QueryEscape(lookback))

	out, err := f.breaker.Execute(func() (interface{}, error) {
		return f.http.get(ctx, u)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("yahoo %s: provider unavailable: %w", symbol, err)
		}
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	return parseYahooChart(out.([]byte))
}

func parseYahooChart(body []byte) ([]model.OHLCV, error) {
	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no quote block")
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		b := model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   toFloat(quote.Open, i),
			High:   toFloat(quote.High, i),
			Low:    toFloat(quote.Low, i),
			Close:  toFloat(quote.Close, i),
			Volume: toFloat(quote.Volume, i),
		}
		if math.IsNaN(b.Open) && math.IsNaN(b.High) && math.IsNaN(b.Low) && math.IsNaN(b.Close) {
			continue // null bars (halts, holidays)
		}
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
