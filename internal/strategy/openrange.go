package strategy

import (
	"errors"
	"fmt"

	"ORBSentinel/internal/calculator"
	"ORBSentinel/internal/model"
)

// ComputeOpeningRange derives the opening range from the first n bars of a day.
// A zero-width range is returned without error; its Strength is NaN.
func ComputeOpeningRange(bars []model.Bar, n int) (model.OpeningRange, error) {
	if n < 1 {
		return model.OpeningRange{}, errors.New("opening range needs at least one bar")
	}
	if len(bars) < n {
		return model.OpeningRange{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBars, len(bars), n)
	}
	window := bars[:n]
	high, low, err := calculator.HighLow(window)
	if err != nil {
		return model.OpeningRange{}, err
	}
	or := model.OpeningRange{
		High:  high,
		Low:   low,
		Open:  window[0].Open,
		Close: window[n-1].Close,
		Bars:  n,
	}
	// ErrZeroRange leaves Strength as NaN, which ZeroWidth reports.
	or.Strength, _ = calculator.Position(or.Close, high, low)
	return or, nil
}
