package notifier

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ORBSentinel/internal/model"
)

func TestFormatOutcome(t *testing.T) {
	entry := time.Date(2024, 3, 5, 9, 45, 0, 0, time.UTC)
	sig := &model.TradeSignal{
		Direction:  model.Long,
		EntryTime:  entry,
		EntryPrice: 115,
		StopLoss:   100,
		ExitPrice:  100,
		ExitTime:   entry.Add(5 * time.Minute),
		ExitReason: model.ExitStopLoss,
	}

	title, body, ok := FormatOutcome(model.Outcome{Kind: model.OutcomeSignal, Reason: "Long at 115.00 on 2024-03-05 09:45 UTC", Signal: sig})
	assert.True(t, ok)
	assert.Equal(t, TitleNewEntry, title)
	assert.Contains(t, body, "Long at 115.00")
	assert.Contains(t, body, "Stop loss: 100.00")
	assert.Contains(t, body, "Stopped out at 100.00 on 09:50")
	assert.Contains(t, body, "P&L: -15.00")

	sig.Direction = model.Short
	sig.ExitReason = model.ExitSessionClose
	sig.ExitPrice = 110
	_, body, _ = FormatOutcome(model.Outcome{Kind: model.OutcomeSignal, Signal: sig})
	assert.Contains(t, body, "Last close: 110.00")
	assert.Contains(t, body, "P&L: +5.00")

	for _, kind := range []model.OutcomeKind{
		model.OutcomeNoValidRegime, model.OutcomeBlockedStrength,
		model.OutcomeBlockedRegime, model.OutcomeBlockedZeroRange,
	} {
		title, body, ok := FormatOutcome(model.Outcome{Kind: kind, Reason: "why"})
		assert.True(t, ok, kind)
		assert.Equal(t, TitleTradeBlock, title)
		assert.Equal(t, "why", body)
	}

	_, _, ok = FormatOutcome(model.Outcome{Kind: model.OutcomeNoCandidate})
	assert.False(t, ok)
}

func TestFormatStatus(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	assert.Contains(t, FormatStatus(nil, 0, now), "No cycle has run yet.")

	s := &model.CycleSummary{
		At:      now,
		Date:    "2024-03-05",
		Outcome: model.OutcomeBlockedRegime,
		Reason:  "Long breakout on 2024-03-05 blocked by regime.",
	}
	out := FormatStatus(s, 4, now)
	assert.Contains(t, out, "Cycles: 4")
	assert.Contains(t, out, "<b>BLOCKED_REGIME</b>")

	s.Error = "fetch <primary>"
	assert.Contains(t, FormatStatus(s, 4, now), "fetch &lt;primary&gt;")
}

func TestFormatCycleError(t *testing.T) {
	title, body := FormatCycleError("2024-03-05", errors.New("insufficient history"))
	assert.Equal(t, TitleCycleFailed, title)
	assert.Equal(t, "Evaluation for 2024-03-05 failed: insufficient history", body)
}
