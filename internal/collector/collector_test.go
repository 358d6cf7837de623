package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ORBSentinel/internal/model"
)

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

const chartJSON = `{"chart":{"result":[{"timestamp":[1709649300,1709649000,1709649600],
"indicators":{"quote":[{"open":[101,100,null],"high":[102,101,null],"low":[100,99,null],
"close":[101.5,100.5,null],"volume":[2000,1000,null]}]}}],"error":null}}`

func newTestYahoo(t *testing.T, h http.HandlerFunc) *YahooFetcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f := NewYahooFetcher("", 1000)
	f.BaseURL = srv.URL
	f.http.backoff = fastBackOff
	return f
}

func TestYahooFetcher_FetchIntraday(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	f := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, chartJSON)
	})

	bars, err := f.FetchIntraday(context.Background(), "VIX", "5m", "15d")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/%5EVIX", gotPath)
	assert.Contains(t, gotQuery, "interval=5m")
	assert.Contains(t, gotQuery, "range=15d")
	assert.Contains(t, gotQuery, "includePrePost=false")
	assert.Equal(t, "Mozilla/5.0", gotUA)

	require.Len(t, bars, 2, "all-null rows are skipped")
	assert.True(t, bars[0].Time.Before(bars[1].Time))
	assert.Equal(t, time.UTC, bars[0].Time.Location())
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 101.5, bars[1].Close)
}

func TestParseYahooChart_PartialNullsBecomeNaN(t *testing.T) {
	body := `{"chart":{"result":[{"timestamp":[1709649000],
"indicators":{"quote":[{"open":[100],"high":[null],"low":[99],"close":[100.5],"volume":[null]}]}}]}}`
	bars, err := parseYahooChart([]byte(body))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.True(t, math.IsNaN(bars[0].High))
	assert.True(t, math.IsNaN(bars[0].Volume))
	assert.False(t, bars[0].Complete())
}

func TestParseYahooChart_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"api error", `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, "No data found"},
		{"empty result", `{"chart":{"result":[]}}`, "no data returned"},
		{"bad json", `{`, "yahoo decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseYahooChart([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestYahooFetcher_RetriesServerErrors(t *testing.T) {
	var calls int32
	f := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "upstream", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, chartJSON)
	})

	bars, err := f.FetchIntraday(context.Background(), "QQQ", "5m", "15d")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestYahooFetcher_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	f := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusNotFound)
	})

	_, err := f.FetchIntraday(context.Background(), "QQQ", "5m", "15d")
	require.Error(t, err)
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestYahooFetcher_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	f := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	for i := 0; i < 5; i++ {
		_, err := f.FetchIntraday(context.Background(), "QQQ", "5m", "15d")
		require.Error(t, err)
	}
	_, err := f.FetchIntraday(context.Background(), "QQQ", "5m", "15d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unavailable")
	assert.EqualValues(t, 5, atomic.LoadInt32(&calls), "open breaker short-circuits the request")
}

func TestRESTFetcher_FetchIntraday(t *testing.T) {
	var auth, query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		query = r.URL.RawQuery
		assert.Equal(t, "/api/v1/bars", r.URL.Path)
		fmt.Fprint(w, `[{"timestamp":1709649300,"open":1,"high":2,"low":0.5,"close":1.5,"volume":10},
{"timestamp":1709649000,"open":1,"high":2,"low":0.5,"close":null,"volume":10}]`)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "", 1000)
	f.http.backoff = fastBackOff
	bars, err := f.FetchIntraday(context.Background(), "^VIX", "5m", "15d")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.True(t, strings.Contains(query, "symbol=%5EVIX"))
	require.Len(t, bars, 2)
	assert.True(t, math.IsNaN(bars[0].Close), "sorted and null close kept as NaN")
	assert.Equal(t, 1.5, bars[1].Close)
}

func TestRESTFetcher_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "", "", 1000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FetchIntraday(ctx, "QQQ", "5m", "15d")
	assert.Error(t, err)
}

func TestCollector_Collect(t *testing.T) {
	now := time.Now().UTC()
	mock := &MockFetcher{Series: map[string][]model.OHLCV{
		"QQQ":  {{Time: now, Close: 400}},
		"^VIX": {{Time: now, Close: 15}},
		"XLU":  {{Time: now, Close: 70}},
	}}
	c := NewCollector(mock, Symbols{Primary: "QQQ", Volatility: "^VIX", Sector: "XLU"}, "", "")
	assert.Equal(t, "5m", c.Interval)
	assert.Equal(t, "15d", c.Lookback)

	data, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 400.0, data.Primary[0].Close)
	assert.Equal(t, 15.0, data.Volatility[0].Close)
	assert.Equal(t, 70.0, data.Sector[0].Close)
	assert.False(t, data.FetchedAt.IsZero())
	assert.Equal(t, []string{"QQQ", "^VIX", "XLU"}, mock.Calls)
}

func TestCollector_CollectFailureNamesSeries(t *testing.T) {
	boom := errors.New("boom")
	mock := &MockFetcher{Errs: map[string]error{"XLU": boom}}
	c := NewCollector(mock, Symbols{Primary: "QQQ", Volatility: "^VIX", Sector: "XLU"}, "5m", "15d")

	_, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sector series (XLU)")
}
