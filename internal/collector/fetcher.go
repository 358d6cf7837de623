package collector

import (
	"context"

	"ORBSentinel/internal/model"
)

// Fetcher defines the interface for fetching intraday market data.
// interval and lookback use provider notation such as "5m" and "15d".
type Fetcher interface {
	FetchIntraday(ctx context.Context, symbol, interval, lookback string) ([]model.OHLCV, error)
	Name() string
}
