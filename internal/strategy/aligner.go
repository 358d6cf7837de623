package strategy

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ORBSentinel/internal/calculator"
	"ORBSentinel/internal/model"
)

// AlignSeries normalizes the raw series onto the session timezone and window
// and joins the auxiliary features onto the primary bars.
func AlignSeries(data *model.MarketData, p Params) ([]model.Bar, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: no market data", ErrInsufficientData)
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	primary := sessionRows(data.Primary, loc, p, func(b model.OHLCV) bool { return b.Complete() })
	if len(primary) == 0 {
		return nil, fmt.Errorf("%w: primary series empty after cleaning", ErrInsufficientData)
	}
	hasClose := func(b model.OHLCV) bool { return !math.IsNaN(b.Close) }
	vol := sessionRows(data.Volatility, loc, p, hasClose)
	if len(vol) == 0 {
		return nil, fmt.Errorf("%w: volatility series empty after cleaning", ErrInsufficientData)
	}
	sector := sessionRows(data.Sector, loc, p, hasClose)
	if len(sector) == 0 {
		return nil, fmt.Errorf("%w: sector series empty after cleaning", ErrInsufficientData)
	}

	slope, err := calculator.EMASlope(primary, p.EMASpan)
	if err != nil {
		return nil, fmt.Errorf("momentum slope: %w", err)
	}
	volByTime := closesByTime(vol)
	sectorByTime := closesByTime(sector)

	bars := make([]model.Bar, len(primary))
	for i, row := range primary {
		b := model.Bar{
			Time:          row.Time,
			Date:          time.Date(row.Time.Year(), row.Time.Month(), row.Time.Day(), 0, 0, 0, 0, loc),
			Open:          row.Open,
			High:          row.High,
			Low:           row.Low,
			Close:         row.Close,
			Volatility:    math.NaN(),
			MomentumSlope: slope[i],
			RiskRatio:     math.NaN(),
		}
		if v, ok := volByTime[row.Time.Unix()]; ok {
			b.Volatility = v
		}
		if s, ok := sectorByTime[row.Time.Unix()]; ok && s != 0 {
			b.RiskRatio = row.Close / s
		}
		bars[i] = b
	}
	return bars, nil
}

// sessionRows keeps the rows accepted by keep, converted to loc, inside the
// regular session, sorted by time with duplicate timestamps dropped.
func sessionRows(rows []model.OHLCV, loc *time.Location, p Params, keep func(model.OHLCV) bool) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(rows))
	for _, r := range rows {
		if !keep(r) {
			continue
		}
		r.Time = r.Time.In(loc)
		if !Within(r.Time, p.SessionStart, p.SessionEnd) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	deduped := make([]model.OHLCV, 0, len(out))
	for _, r := range out {
		if n := len(deduped); n > 0 && r.Time.Equal(deduped[n-1].Time) {
			continue
		}
		deduped = append(deduped, r)
	}
	return deduped
}

func closesByTime(rows []model.OHLCV) map[int64]float64 {
	m := make(map[int64]float64, len(rows))
	for _, r := range rows {
		m[r.Time.Unix()] = r.Close
	}
	return m
}
