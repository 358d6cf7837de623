package model

import (
	"math"
	"time"
)

// Direction is the side of a trade.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// ExitReason explains how a simulated trade was closed.
type ExitReason string

const (
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitSessionClose ExitReason = "SESSION_CLOSE"
)

// OutcomeKind classifies the result of one evaluation.
type OutcomeKind string

const (
	OutcomeNoCandidate      OutcomeKind = "NO_CANDIDATE"
	OutcomeNoValidRegime    OutcomeKind = "NO_VALID_REGIME"
	OutcomeBlockedStrength  OutcomeKind = "BLOCKED_STRENGTH"
	OutcomeBlockedRegime    OutcomeKind = "BLOCKED_REGIME"
	OutcomeBlockedZeroRange OutcomeKind = "BLOCKED_ZERO_RANGE"
	OutcomeSignal           OutcomeKind = "SIGNAL"
)

// OpeningRange is the price band of the first bars of a session.
type OpeningRange struct {
	High     float64
	Low      float64
	Open     float64
	Close    float64
	Strength float64 // NaN when High == Low
	Bars     int
}

// ZeroWidth reports whether the range collapsed to a single price.
func (r OpeningRange) ZeroWidth() bool {
	return r.High == r.Low || math.IsNaN(r.Strength)
}

// BreakoutEvent is a bar closing outside the opening range on an inactive side.
type BreakoutEvent struct {
	Side  Direction
	Time  time.Time
	Price float64
}

// Breakouts holds the ordered events of both sides for one day.
type Breakouts struct {
	Long  []BreakoutEvent
	Short []BreakoutEvent
}

// Regime is the macro gate derived from the opening range window.
type Regime struct {
	VolatilityAvg      float64
	VolatilityBaseline float64
	RiskRatioAvg       float64
	RiskRatioBaseline  float64
	MomentumAvg        float64
	AllowLong          bool
	AllowShort         bool
}

// Allows reports whether the regime permits trading in the given direction.
func (r Regime) Allows(d Direction) bool {
	if d == Long {
		return r.AllowLong
	}
	return r.AllowShort
}

// TradeSignal is the single trade a session can produce.
type TradeSignal struct {
	Date       time.Time  `json:"date"`
	Direction  Direction  `json:"direction"`
	EntryTime  time.Time  `json:"entry_time"`
	EntryPrice float64    `json:"entry_price"`
	StopLoss   float64    `json:"stop_loss"`
	ExitPrice  float64    `json:"exit_price"`
	ExitTime   time.Time  `json:"exit_time"`
	ExitReason ExitReason `json:"exit_reason"`
}

// Outcome is exactly one result per session evaluation.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Signal *TradeSignal // set only when Kind == OutcomeSignal
}

// Evaluation bundles everything derived for today in one cycle.
type Evaluation struct {
	Date      time.Time
	Range     OpeningRange
	Breakouts Breakouts
	Regime    Regime
	Outcome   Outcome
}
