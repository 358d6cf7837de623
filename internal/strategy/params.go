package strategy

import (
	"fmt"
	"time"
)

// Params configures the signal pipeline.
type Params struct {
	OpeningRangeBars      int
	EMASpan               int
	StrengthVetoThreshold float64
	Location              *time.Location
	SessionStart          Clock
	SessionEnd            Clock
}

// DefaultParams returns the parameters of the 5-minute QQQ setup.
func DefaultParams() Params {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return Params{
		OpeningRangeBars:      3,
		EMASpan:               20,
		StrengthVetoThreshold: 0.7,
		Location:              loc,
		SessionStart:          Clock{Hour: 9, Minute: 30},
		SessionEnd:            Clock{Hour: 16},
	}
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Seconds returns the offset from midnight in seconds.
func (c Clock) Seconds() int {
	return c.Hour*3600 + c.Minute*60
}

// On returns the instant of this clock time on t's calendar day in loc.
func (c Clock) On(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, loc)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Within reports whether t's time of day falls in [start, end], both inclusive.
func Within(t time.Time, start, end Clock) bool {
	sod := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return sod >= start.Seconds() && sod <= end.Seconds()
}
