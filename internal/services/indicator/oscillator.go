package indicator

import "math"

// Divisor scales volatility into the normalisation denominator, floored at minTick
// so flat markets never divide by zero.
func Divisor(atr, multiplier, minTick float64) float64 {
	return math.Max(atr*multiplier, minTick)
}

// RawDeviation returns (close-baseline)/divisor for every index.
func RawDeviation(close, baseline, atr []float64, multiplier, minTick float64) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		out[i] = (close[i] - baseline[i]) / Divisor(atr[i], multiplier, minTick)
	}
	return out
}

// Clamp compresses x with tanh after clipping to ±limit. Large inputs
// saturate to exactly ±1 in float64.
func Clamp(x, limit float64) float64 {
	return math.Tanh(math.Max(-limit, math.Min(limit, x)))
}
