package scheduler

import (
	"context"
	"strings"
	"time"

	"ORBSentinel/internal/model"
	"ORBSentinel/internal/notifier"
)

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "status":
		var cycles int
		var last *model.CycleSummary
		if s.tracker != nil {
			snap := s.tracker.Snapshot()
			cycles, last = snap.Cycles, snap.LastCycle
		}
		return notifier.FormatStatus(last, cycles, s.now().In(s.opts.Location))
	case "run":
		summary, _ := s.RunCycle(ctx)
		cycles := 0
		if s.tracker != nil {
			cycles = s.tracker.Snapshot().Cycles
		}
		return notifier.FormatStatus(&summary, cycles, s.now().In(s.opts.Location))
	default:
		return notifier.FormatHelp()
	}
}

// Status is the document served on the HTTP /status endpoint.
type Status struct {
	LastCycle  *model.CycleSummary `json:"last_cycle"`
	Cycles     int                 `json:"cycles"`
	WindowOpen bool                `json:"window_open"`
	Now        time.Time           `json:"now"`
}

// Status returns the current scheduler status.
func (s *Scheduler) Status() Status {
	now := s.now()
	st := Status{WindowOpen: s.InWindow(now), Now: now.In(s.opts.Location)}
	if s.tracker != nil {
		snap := s.tracker.Snapshot()
		st.LastCycle = snap.LastCycle
		st.Cycles = snap.Cycles
	}
	return st
}
