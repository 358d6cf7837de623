package strategy

import (
	"fmt"
	"time"

	"ORBSentinel/internal/model"
)

type dayRange struct {
	start, end int // half-open indices into Partition.bars
}

// Partition is an immutable arena of day sessions indexed by session date.
type Partition struct {
	bars  []model.Bar
	dates []time.Time
	days  map[string]dayRange
}

// NewPartition groups time-ordered bars by their session date. At least two
// distinct dates are required, and the most recent one must have bars.
func NewPartition(bars []model.Bar) (*Partition, error) {
	p := &Partition{
		bars: bars,
		days: make(map[string]dayRange),
	}
	for i, b := range bars {
		key := model.DateKey(b.Date)
		r, ok := p.days[key]
		if !ok {
			p.dates = append(p.dates, b.Date)
			r = dayRange{start: i}
		}
		r.end = i + 1
		p.days[key] = r
	}

	if len(p.dates) < 2 {
		return nil, fmt.Errorf("%w: %d distinct session date(s), need 2", ErrInsufficientHistory, len(p.dates))
	}
	if len(p.Day(p.Today())) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyToday, model.DateKey(p.Today()))
	}
	return p, nil
}

// Dates returns the distinct session dates in ascending order.
func (p *Partition) Dates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

// Today is the most recent session date.
func (p *Partition) Today() time.Time {
	return p.dates[len(p.dates)-1]
}

// Yesterday is the session date before Today.
func (p *Partition) Yesterday() time.Time {
	return p.dates[len(p.dates)-2]
}

// Day returns the bars of the given session date, or nil.
func (p *Partition) Day(date time.Time) []model.Bar {
	r, ok := p.days[model.DateKey(date)]
	if !ok {
		return nil
	}
	return p.bars[r.start:r.end:r.end]
}

// PrecedingBar returns the bar immediately before the first bar of date.
func (p *Partition) PrecedingBar(date time.Time) (model.Bar, bool) {
	r, ok := p.days[model.DateKey(date)]
	if !ok || r.start == 0 {
		return model.Bar{}, false
	}
	return p.bars[r.start-1], true
}
