package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"ORBSentinel/internal/model"
)

// Notification titles.
const (
	TitleStarted     = "Script Started"
	TitleTradeBlock  = "Trade Blocked"
	TitleNewEntry    = "New Trade Entry Detected"
	TitleCycleFailed = "Cycle Failed"
)

// StartedBody is sent once when the process starts.
const StartedBody = "The trading script is now running."

// FormatOutcome turns an evaluation outcome into a notification. ok is false
// for outcomes that are not worth pushing.
func FormatOutcome(o model.Outcome) (title, body string, ok bool) {
	switch o.Kind {
	case model.OutcomeSignal:
		if o.Signal == nil {
			return "", "", false
		}
		return TitleNewEntry, formatSignal(o.Reason, o.Signal), true
	case model.OutcomeNoValidRegime, model.OutcomeBlockedStrength,
		model.OutcomeBlockedRegime, model.OutcomeBlockedZeroRange:
		return TitleTradeBlock, o.Reason, true
	default:
		return "", "", false
	}
}

func formatSignal(headline string, s *model.TradeSignal) string {
	var b strings.Builder
	b.WriteString(headline)
	b.WriteString(fmt.Sprintf("\nStop loss: %.2f", s.StopLoss))
	switch s.ExitReason {
	case model.ExitStopLoss:
		b.WriteString(fmt.Sprintf("\nStopped out at %.2f on %s", s.ExitPrice, s.ExitTime.Format("15:04")))
	default:
		b.WriteString(fmt.Sprintf("\nLast close: %.2f (%s)", s.ExitPrice, s.ExitTime.Format("15:04")))
	}
	b.WriteString(fmt.Sprintf("\nP&L: %+.2f", pnl(s)))
	return b.String()
}

func pnl(s *model.TradeSignal) float64 {
	if s.Direction == model.Short {
		return s.EntryPrice - s.ExitPrice
	}
	return s.ExitPrice - s.EntryPrice
}

// FormatCycleError describes a cycle that could not be evaluated.
func FormatCycleError(date string, err error) (title, body string) {
	return TitleCycleFailed, fmt.Sprintf("Evaluation for %s failed: %v", date, err)
}

// FormatStatus renders the last cycle for the Telegram /status command.
func FormatStatus(s *model.CycleSummary, cycles int, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>ORBSentinel</b> | %s\n\n", now.Format("2006-01-02 15:04 MST")))
	if s == nil {
		b.WriteString("No cycle has run yet.")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Last run: %s (%.1fs)\n", s.At.Format("2006-01-02 15:04:05"), s.Duration))
	b.WriteString(fmt.Sprintf("Cycles: %d\n", cycles))
	if s.Error != "" {
		b.WriteString(fmt.Sprintf("❌ Error: %s\n", html.EscapeString(s.Error)))
		return b.String()
	}
	if s.Outcome == "" {
		b.WriteString(html.EscapeString(s.Reason))
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Session: %s\n", s.Date))
	b.WriteString(fmt.Sprintf("Outcome: <b>%s</b>\n", s.Outcome))
	b.WriteString(html.EscapeString(s.Reason))
	if sig := s.Signal; sig != nil {
		b.WriteString(fmt.Sprintf("\nStop: %.2f | Exit: %.2f (%s)", sig.StopLoss, sig.ExitPrice, sig.ExitReason))
	}
	return b.String()
}

// FormatHelp lists the supported bot commands.
func FormatHelp() string {
	return "Commands:\n/status - last cycle outcome\n/run - evaluate now"
}
