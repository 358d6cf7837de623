package strategy

import "errors"

// Fatal-for-cycle conditions. Callers match them with errors.Is; the
// scheduler skips to the next tick when one is returned.
var (
	ErrInsufficientData    = errors.New("insufficient data")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrEmptyToday          = errors.New("no bars for today")
	ErrInsufficientBars    = errors.New("insufficient opening range bars")
)
