package strategy

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"ORBSentinel/internal/model"
)

// Engine runs the opening range breakout pipeline over freshly fetched data.
// It holds no state between evaluations.
type Engine struct {
	params Params
}

// NewEngine creates an Engine, filling unset params with defaults.
// StrengthVetoThreshold is used as given; zero vetoes every short whose
// opening strength is positive.
func NewEngine(p Params) *Engine {
	def := DefaultParams()
	if p.OpeningRangeBars <= 0 {
		p.OpeningRangeBars = def.OpeningRangeBars
	}
	if p.EMASpan <= 0 {
		p.EMASpan = def.EMASpan
	}
	if p.Location == nil {
		p.Location = def.Location
	}
	if p.SessionStart == (Clock{}) && p.SessionEnd == (Clock{}) {
		p.SessionStart, p.SessionEnd = def.SessionStart, def.SessionEnd
	}
	return &Engine{params: p}
}

// Params returns the effective parameters.
func (e *Engine) Params() Params { return e.params }

// Evaluate aligns the raw series and evaluates today's session.
func (e *Engine) Evaluate(data *model.MarketData) (*model.Evaluation, error) {
	bars, err := AlignSeries(data, e.params)
	if err != nil {
		return nil, err
	}
	return e.EvaluateBars(bars)
}

// EvaluateBars evaluates today's session from already aligned bars.
func (e *Engine) EvaluateBars(bars []model.Bar) (*model.Evaluation, error) {
	part, err := NewPartition(bars)
	if err != nil {
		return nil, err
	}
	today := part.Today()
	day := part.Day(today)

	n := e.params.OpeningRangeBars
	or, err := ComputeOpeningRange(day, n)
	if err != nil {
		return nil, err
	}
	rest := day[n:]
	breakouts := TrackBreakouts(or, rest)

	baseline, ok := part.PrecedingBar(today)
	if !ok {
		return nil, fmt.Errorf("%w: no bar before %s", ErrInsufficientHistory, model.DateKey(today))
	}
	regime := EvaluateRegime(day[:n], baseline)

	eval := &model.Evaluation{
		Date:      today,
		Range:     or,
		Breakouts: breakouts,
		Regime:    regime,
	}

	log.Debug().
		Str("component", "strategy").
		Str("date", model.DateKey(today)).
		Float64("or_high", or.High).
		Float64("or_low", or.Low).
		Float64("strength", or.Strength).
		Int("long_breakouts", len(breakouts.Long)).
		Int("short_breakouts", len(breakouts.Short)).
		Bool("allow_long", regime.AllowLong).
		Bool("allow_short", regime.AllowShort).
		Msg("session evaluated")

	if !regime.AllowLong && !regime.AllowShort {
		eval.Outcome = model.Outcome{
			Kind:   model.OutcomeNoValidRegime,
			Reason: fmt.Sprintf("No valid trade setup on %s: both long and short disallowed.", model.DateKey(today)),
		}
		return eval, nil
	}

	eval.Outcome = Resolve(today, or, breakouts, regime, rest, e.params.StrengthVetoThreshold)
	return eval, nil
}
