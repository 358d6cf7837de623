package model

import "time"

// CycleSummary is the compact view of the last cycle kept by the state tracker.
type CycleSummary struct {
	RunID    string       `json:"run_id"`
	At       time.Time    `json:"at"`
	Date     string       `json:"date,omitempty"`
	Outcome  OutcomeKind  `json:"outcome,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Error    string       `json:"error,omitempty"`
	Signal   *TradeSignal `json:"signal,omitempty"`
	Duration float64      `json:"duration_seconds"`
}

// TrackerState is persisted between process restarts.
type TrackerState struct {
	LastCycle *CycleSummary       `json:"last_cycle,omitempty"`
	Notified  map[string][]string `json:"notified"` // session date -> notification keys
	Cycles    int                 `json:"cycles"`
	UpdatedAt time.Time           `json:"updated_at"`
}
