package recorder

import (
	"database/sql"
	"math"
	"time"

	"ORBSentinel/internal/model"
)

// CycleRecord holds everything one scheduler cycle produced.
type CycleRecord struct {
	RunID    string
	At       time.Time
	Duration time.Duration
	Err      error // fatal cycle error; Evaluation is nil when set

	Evaluation *model.Evaluation
}

// Recorder persists cycle history for analysis.
type Recorder interface {
	RecordCycle(rec *CycleRecord) error
	Close() error
}

// cycleRow is the flattened orb_cycles row. Missing values map to NULL.
type cycleRow struct {
	RunID          string          `db:"run_id"`
	Timestamp      int64           `db:"timestamp"`
	DurationMS     int64           `db:"duration_ms"`
	SessionDate    sql.NullString  `db:"session_date"`
	Outcome        sql.NullString  `db:"outcome"`
	Reason         sql.NullString  `db:"reason"`
	Error          sql.NullString  `db:"error"`
	ORHigh         sql.NullFloat64 `db:"or_high"`
	ORLow          sql.NullFloat64 `db:"or_low"`
	Strength       sql.NullFloat64 `db:"strength"`
	VolAvg         sql.NullFloat64 `db:"vol_avg"`
	VolBase        sql.NullFloat64 `db:"vol_base"`
	RatioAvg       sql.NullFloat64 `db:"ratio_avg"`
	RatioBase      sql.NullFloat64 `db:"ratio_base"`
	MomentumAvg    sql.NullFloat64 `db:"momentum_avg"`
	AllowLong      bool            `db:"allow_long"`
	AllowShort     bool            `db:"allow_short"`
	LongBreakouts  int             `db:"long_breakouts"`
	ShortBreakouts int             `db:"short_breakouts"`
}

// signalRow is one orb_signals row, keyed by session date.
type signalRow struct {
	SessionDate string  `db:"session_date"`
	RunID       string  `db:"run_id"`
	Direction   string  `db:"direction"`
	EntryTime   int64   `db:"entry_time"`
	EntryPrice  float64 `db:"entry_price"`
	StopLoss    float64 `db:"stop_loss"`
	ExitPrice   float64 `db:"exit_price"`
	ExitTime    int64   `db:"exit_time"`
	ExitReason  string  `db:"exit_reason"`
}

func nullFloat(f float64) sql.NullFloat64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toRows(rec *CycleRecord) (cycleRow, *signalRow) {
	row := cycleRow{
		RunID:      rec.RunID,
		Timestamp:  rec.At.Unix(),
		DurationMS: rec.Duration.Milliseconds(),
	}
	if rec.Err != nil {
		row.Error = nullString(rec.Err.Error())
	}
	ev := rec.Evaluation
	if ev == nil {
		return row, nil
	}

	date := model.DateKey(ev.Date)
	row.SessionDate = nullString(date)
	row.Outcome = nullString(string(ev.Outcome.Kind))
	row.Reason = nullString(ev.Outcome.Reason)
	row.ORHigh = nullFloat(ev.Range.High)
	row.ORLow = nullFloat(ev.Range.Low)
	row.Strength = nullFloat(ev.Range.Strength)
	row.VolAvg = nullFloat(ev.Regime.VolatilityAvg)
	row.VolBase = nullFloat(ev.Regime.VolatilityBaseline)
	row.RatioAvg = nullFloat(ev.Regime.RiskRatioAvg)
	row.RatioBase = nullFloat(ev.Regime.RiskRatioBaseline)
	row.MomentumAvg = nullFloat(ev.Regime.MomentumAvg)
	row.AllowLong = ev.Regime.AllowLong
	row.AllowShort = ev.Regime.AllowShort
	row.LongBreakouts = len(ev.Breakouts.Long)
	row.ShortBreakouts = len(ev.Breakouts.Short)

	sig := ev.Outcome.Signal
	if sig == nil {
		return row, nil
	}
	return row, &signalRow{
		SessionDate: date,
		RunID:       rec.RunID,
		Direction:   string(sig.Direction),
		EntryTime:   sig.EntryTime.Unix(),
		EntryPrice:  sig.EntryPrice,
		StopLoss:    sig.StopLoss,
		ExitPrice:   sig.ExitPrice,
		ExitTime:    sig.ExitTime.Unix(),
		ExitReason:  string(sig.ExitReason),
	}
}
