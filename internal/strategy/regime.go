package strategy

import (
	"ORBSentinel/internal/calculator"
	"ORBSentinel/internal/model"
)

// EvaluateRegime compares the opening-range averages of volatility, risk ratio
// and momentum with the bar preceding the range. NaN operands never satisfy a
// comparison, so missing auxiliary data gates both sides off.
func EvaluateRegime(rangeBars []model.Bar, baseline model.Bar) model.Regime {
	vols := make([]float64, len(rangeBars))
	ratios := make([]float64, len(rangeBars))
	slopes := make([]float64, len(rangeBars))
	for i, b := range rangeBars {
		vols[i] = b.Volatility
		ratios[i] = b.RiskRatio
		slopes[i] = b.MomentumSlope
	}

	r := model.Regime{
		VolatilityAvg:      calculator.Mean(vols),
		VolatilityBaseline: baseline.Volatility,
		RiskRatioAvg:       calculator.Mean(ratios),
		RiskRatioBaseline:  baseline.RiskRatio,
		MomentumAvg:        calculator.Mean(slopes),
	}
	r.AllowLong = r.VolatilityAvg < r.VolatilityBaseline &&
		r.RiskRatioAvg > r.RiskRatioBaseline &&
		r.MomentumAvg > 0
	r.AllowShort = r.VolatilityAvg > r.VolatilityBaseline &&
		r.RiskRatioAvg < r.RiskRatioBaseline &&
		r.MomentumAvg < 0
	return r
}
