package strategy

import (
	"math"
	"time"

	"ORBSentinel/internal/model"
)

var ny = DefaultParams().Location

// at parses "2006-01-02 15:04" in New York time.
func at(ts string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", ts, ny)
	if err != nil {
		panic(err)
	}
	return t
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ny)
}

// bar builds an aligned bar with a neutral regime feature set.
func bar(ts string, o, h, l, c float64) model.Bar {
	t := at(ts)
	return model.Bar{
		Time:          t,
		Date:          midnight(t),
		Open:          o,
		High:          h,
		Low:           l,
		Close:         c,
		Volatility:    20,
		MomentumSlope: 0,
		RiskRatio:     1.0,
	}
}

// withRegime overrides the auxiliary features of b.
func withRegime(b model.Bar, vol, slope, ratio float64) model.Bar {
	b.Volatility = vol
	b.MomentumSlope = slope
	b.RiskRatio = ratio
	return b
}

// closeBar is a bar whose range hugs its close.
func closeBar(ts string, c float64) model.Bar {
	return bar(ts, c, c+0.5, c-0.5, c)
}

func nan() float64 { return math.NaN() }
