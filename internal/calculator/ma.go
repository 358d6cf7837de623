package calculator

import (
	"errors"
	"math"

	"ORBSentinel/internal/model"
)

// Mean returns the arithmetic mean of the non-NaN values, or NaN when there are none.
func Mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// EWMMean computes the exponentially weighted mean with the given span using
// adjusted weights: y[t] = sum((1-a)^i * x[t-i]) / sum((1-a)^i), a = 2/(span+1).
func EWMMean(values []float64, span int) ([]float64, error) {
	if span < 1 {
		return nil, errors.New("span must be >= 1")
	}
	alpha := 2.0 / float64(span+1)
	decay := 1 - alpha

	out := make([]float64, len(values))
	num, den := 0.0, 0.0
	for i, v := range values {
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out, nil
}

// Diff returns the first difference of values; the first element is NaN.
func Diff(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}

// EMASlope is the first difference of the EWM mean of the closes.
func EMASlope(bars []model.OHLCV, span int) ([]float64, error) {
	ema, err := EWMMean(extractCloses(bars), span)
	if err != nil {
		return nil, err
	}
	return Diff(ema), nil
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
