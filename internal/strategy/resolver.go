package strategy

import (
	"fmt"
	"time"

	"ORBSentinel/internal/model"
)

// Candidate is the breakout selected for a possible trade.
type Candidate struct {
	Direction model.Direction
	Event     model.BreakoutEvent
}

// SelectCandidate applies the fixed priority: the first long breakout when it
// precedes any short breakout, else the second short breakout. A lone short
// breakout only establishes the retest and is never traded.
func SelectCandidate(b model.Breakouts) (Candidate, bool) {
	if len(b.Long) >= 1 {
		firstLong := b.Long[0]
		if len(b.Short) == 0 || firstLong.Time.Before(b.Short[0].Time) {
			return Candidate{Direction: model.Long, Event: firstLong}, true
		}
	}
	if len(b.Short) >= 2 {
		return Candidate{Direction: model.Short, Event: b.Short[1]}, true
	}
	return Candidate{}, false
}

// StopLevel is the range boundary opposite to the trade.
func StopLevel(d model.Direction, or model.OpeningRange) float64 {
	if d == model.Long {
		return or.Low
	}
	return or.High
}

// SimulateExit walks bars from the entry bar (inclusive) and exits at stop on
// the first bar that touches it, otherwise at the close of the last bar.
func SimulateExit(bars []model.Bar, d model.Direction, entry time.Time, stop float64) (float64, time.Time, model.ExitReason) {
	var last model.Bar
	for _, b := range bars {
		if b.Time.Before(entry) {
			continue
		}
		last = b
		if d == model.Long && b.Low <= stop {
			return stop, b.Time, model.ExitStopLoss
		}
		if d == model.Short && b.High >= stop {
			return stop, b.Time, model.ExitStopLoss
		}
	}
	return last.Close, last.Time, model.ExitSessionClose
}

// Resolve picks at most one trade for the day. rest holds the bars after the
// opening range; threshold is the opening strength above which shorts are vetoed.
func Resolve(date time.Time, or model.OpeningRange, b model.Breakouts, regime model.Regime, rest []model.Bar, threshold float64) model.Outcome {
	day := model.DateKey(date)

	c, ok := SelectCandidate(b)
	if !ok {
		return model.Outcome{
			Kind:   model.OutcomeNoCandidate,
			Reason: fmt.Sprintf("No qualifying breakout on %s.", day),
		}
	}
	if or.ZeroWidth() {
		return model.Outcome{
			Kind:   model.OutcomeBlockedZeroRange,
			Reason: fmt.Sprintf("No valid trade setup on %s: opening range has zero width at %.2f.", day, or.High),
		}
	}
	if c.Direction == model.Short && or.Strength > threshold {
		return model.Outcome{
			Kind:   model.OutcomeBlockedStrength,
			Reason: fmt.Sprintf("No valid trade setup on %s: opening strength too high (%.2f > %.2f).", day, or.Strength, threshold),
		}
	}
	if !regime.Allows(c.Direction) {
		return model.Outcome{
			Kind:   model.OutcomeBlockedRegime,
			Reason: fmt.Sprintf("%s breakout on %s blocked by regime.", title(c.Direction), day),
		}
	}

	stop := StopLevel(c.Direction, or)
	exitPrice, exitTime, reason := SimulateExit(rest, c.Direction, c.Event.Time, stop)
	return model.Outcome{
		Kind:   model.OutcomeSignal,
		Reason: fmt.Sprintf("%s at %.2f on %s", title(c.Direction), c.Event.Price, c.Event.Time.Format("2006-01-02 15:04 MST")),
		Signal: &model.TradeSignal{
			Date:       date,
			Direction:  c.Direction,
			EntryTime:  c.Event.Time,
			EntryPrice: c.Event.Price,
			StopLoss:   stop,
			ExitPrice:  exitPrice,
			ExitTime:   exitTime,
			ExitReason: reason,
		},
	}
}

func title(d model.Direction) string {
	if d == model.Long {
		return "Long"
	}
	return "Short"
}
