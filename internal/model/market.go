package model

import (
	"math"
	"time"
)

// OHLCV represents a single candlestick bar as returned by a data source.
// Fields the provider left empty are NaN.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Complete reports whether every price field is present.
func (b OHLCV) Complete() bool {
	return !math.IsNaN(b.Open) && !math.IsNaN(b.High) && !math.IsNaN(b.Low) && !math.IsNaN(b.Close)
}

// MarketData holds the raw series fetched for one cycle.
type MarketData struct {
	Primary    []OHLCV
	Volatility []OHLCV
	Sector     []OHLCV
	FetchedAt  time.Time
}

// Bar is one aligned 5-minute sample of the primary instrument joined with
// the auxiliary features.
type Bar struct {
	Time          time.Time
	Date          time.Time // session-local midnight
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volatility    float64 // NaN when the volatility index has no sample at Time
	MomentumSlope float64
	RiskRatio     float64 // Close / sector close, NaN when the sector has no sample
}

// DateKey formats a session date for map lookups and messages.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
