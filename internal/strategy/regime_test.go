package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ORBSentinel/internal/model"
)

func rangeBarsWith(vol, slope, ratio float64) []model.Bar {
	return []model.Bar{
		withRegime(closeBar("2024-03-05 09:30", 100), vol, slope, ratio),
		withRegime(closeBar("2024-03-05 09:35", 101), vol, slope, ratio),
		withRegime(closeBar("2024-03-05 09:40", 102), vol, slope, ratio),
	}
}

func TestEvaluateRegime_AllowsLong(t *testing.T) {
	baseline := withRegime(closeBar("2024-03-04 15:55", 99), 20, 0, 1.0)
	r := EvaluateRegime(rangeBarsWith(15, 0.3, 1.2), baseline)

	assert.True(t, r.AllowLong)
	assert.False(t, r.AllowShort)
	assert.InDelta(t, 15.0, r.VolatilityAvg, 1e-12)
	assert.InDelta(t, 1.2, r.RiskRatioAvg, 1e-12)
	assert.InDelta(t, 0.3, r.MomentumAvg, 1e-12)
	assert.True(t, r.Allows(model.Long))
	assert.False(t, r.Allows(model.Short))
}

func TestEvaluateRegime_AllowsShort(t *testing.T) {
	baseline := withRegime(closeBar("2024-03-04 15:55", 99), 20, 0, 1.0)
	r := EvaluateRegime(rangeBarsWith(25, -0.2, 0.9), baseline)

	assert.False(t, r.AllowLong)
	assert.True(t, r.AllowShort)
}

func TestEvaluateRegime_MixedSignalsAllowNeither(t *testing.T) {
	baseline := withRegime(closeBar("2024-03-04 15:55", 99), 20, 0, 1.0)

	tests := []struct {
		name              string
		vol, slope, ratio float64
	}{
		{"falling vol but negative momentum", 15, -0.1, 1.2},
		{"rising vol with risk-on ratio", 25, -0.1, 1.2},
		{"flat momentum", 15, 0, 1.2},
		{"equal volatility", 20, 0.3, 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := EvaluateRegime(rangeBarsWith(tt.vol, tt.slope, tt.ratio), baseline)
			assert.False(t, r.AllowLong)
			assert.False(t, r.AllowShort)
		})
	}
}

func TestEvaluateRegime_AveragesSkipMissingSamples(t *testing.T) {
	baseline := withRegime(closeBar("2024-03-04 15:55", 99), 20, 0, 1.0)
	bars := []model.Bar{
		withRegime(closeBar("2024-03-05 09:30", 100), 14, 0.2, 1.1),
		withRegime(closeBar("2024-03-05 09:35", 101), nan(), 0.4, nan()),
		withRegime(closeBar("2024-03-05 09:40", 102), 16, nan(), 1.3),
	}
	r := EvaluateRegime(bars, baseline)
	assert.InDelta(t, 15.0, r.VolatilityAvg, 1e-12)
	assert.InDelta(t, 1.2, r.RiskRatioAvg, 1e-12)
	assert.InDelta(t, 0.3, r.MomentumAvg, 1e-12)
	assert.True(t, r.AllowLong)
}

func TestEvaluateRegime_MissingBaselineBlocksBothSides(t *testing.T) {
	baseline := withRegime(closeBar("2024-03-04 15:55", 99), nan(), 0, 1.0)
	r := EvaluateRegime(rangeBarsWith(15, 0.3, 1.2), baseline)
	assert.False(t, r.AllowLong)
	assert.False(t, r.AllowShort)
}
