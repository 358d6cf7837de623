package state

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"ORBSentinel/internal/model"
)

// keepDates bounds how many session dates of notification keys are retained.
const keepDates = 5

// Tracker remembers the last cycle and which notifications were already
// sent per session date. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	state    *model.TrackerState
	filePath string
}

// NewTracker creates a Tracker, loading state from disk. An empty filePath
// keeps state in memory only.
func NewTracker(filePath string) (*Tracker, error) {
	st := &model.TrackerState{Notified: map[string][]string{}}
	if filePath != "" {
		loaded, err := LoadState(filePath)
		if err != nil {
			return nil, err
		}
		st = loaded
	}
	return &Tracker{state: st, filePath: filePath}, nil
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() model.TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	cp := *t.state
	cp.Notified = make(map[string][]string, len(t.state.Notified))
	for d, keys := range t.state.Notified {
		cp.Notified[d] = append([]string(nil), keys...)
	}
	if t.state.LastCycle != nil {
		last := *t.state.LastCycle
		cp.LastCycle = &last
	}
	return cp
}

// LastCycle returns the most recent cycle summary, or nil.
func (t *Tracker) LastCycle() *model.CycleSummary {
	return t.Snapshot().LastCycle
}

// Notified reports whether key was already sent for date.
func (t *Tracker) Notified(date, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range t.state.Notified[date] {
		if k == key {
			return true
		}
	}
	return false
}

// MarkNotified records key for date and drops keys of old dates.
func (t *Tracker) MarkNotified(date, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, k := range t.state.Notified[date] {
		if k == key {
			return nil
		}
	}
	t.state.Notified[date] = append(t.state.Notified[date], key)
	t.prune()
	return t.save()
}

// RecordCycle stores s as the last cycle.
func (t *Tracker) RecordCycle(s model.CycleSummary) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.LastCycle = &s
	t.state.Cycles++
	return t.save()
}

func (t *Tracker) prune() {
	if len(t.state.Notified) <= keepDates {
		return
	}
	dates := make([]string, 0, len(t.state.Notified))
	for d := range t.state.Notified {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates[:len(dates)-keepDates] {
		delete(t.state.Notified, d)
	}
}

func (t *Tracker) save() error {
	if t.filePath == "" {
		return nil
	}
	if err := SaveState(t.filePath, t.state); err != nil {
		log.Error().Str("component", "state").Err(err).Msg("save state")
		return err
	}
	return nil
}
