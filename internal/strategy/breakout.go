package strategy

import (
	"ORBSentinel/internal/model"
)

type detectorState int

const (
	inactive detectorState = iota
	active
)

// Detector is the two-state breakout/retest machine for one side of the range.
//
//	INACTIVE --close beyond level--> ACTIVE   (emits a BreakoutEvent)
//	ACTIVE   --close back inside---> INACTIVE (retest, no event)
type Detector struct {
	side  model.Direction
	level float64
	state detectorState
}

// NewDetector returns an inactive detector watching level on the given side:
// the range high for Long, the range low for Short.
func NewDetector(side model.Direction, level float64) *Detector {
	return &Detector{side: side, level: level}
}

// Active reports whether price is currently outside the range on this side.
func (d *Detector) Active() bool { return d.state == active }

// Step feeds one bar and returns the breakout event it triggered, if any.
func (d *Detector) Step(b model.Bar) (model.BreakoutEvent, bool) {
	outside := b.Close > d.level
	if d.side == model.Short {
		outside = b.Close < d.level
	}

	switch d.state {
	case inactive:
		if outside {
			d.state = active
			return model.BreakoutEvent{Side: d.side, Time: b.Time, Price: b.Close}, true
		}
	case active:
		if !outside {
			d.state = inactive
		}
	}
	return model.BreakoutEvent{}, false
}

// TrackBreakouts folds both detectors over the bars that follow the opening range.
func TrackBreakouts(or model.OpeningRange, bars []model.Bar) model.Breakouts {
	long := NewDetector(model.Long, or.High)
	short := NewDetector(model.Short, or.Low)

	var out model.Breakouts
	for _, b := range bars {
		if ev, ok := long.Step(b); ok {
			out.Long = append(out.Long, ev)
		}
		if ev, ok := short.Step(b); ok {
			out.Short = append(out.Short, ev)
		}
	}
	return out
}
