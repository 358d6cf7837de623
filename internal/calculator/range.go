package calculator

import (
	"errors"
	"math"

	"ORBSentinel/internal/model"
)

// ErrZeroRange is returned when a band has no width and a position inside it is undefined.
var ErrZeroRange = errors.New("range has zero width")

// HighLow scans the bars and returns the highest high and the lowest low.
func HighLow(bars []model.Bar) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// Position returns where price sits within [low, high] as (price-low)/(high-low).
// The result is not clamped. A zero-width band yields ErrZeroRange.
func Position(price, high, low float64) (float64, error) {
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	if high == low {
		return math.NaN(), ErrZeroRange
	}
	return (price - low) / (high - low), nil
}
