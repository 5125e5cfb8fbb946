package indicator

import (
	"math"

	"ProScalper/internal/domain/models"
)

// EMA computes the exponential moving average with α = 2/(period+1).
// The recursion is seeded with the first sample, so out[0] == series[0].
func EMA(series []float64, period int) []float64 {
	if period < 1 {
		period = 1
	}
	return smooth(series, 2/float64(period+1))
}

// TrueRange returns the per-bar true range. TR[0] is high-low of the first bar.
func TrueRange(bars []models.Bar) []float64 {
	if len(bars) == 0 {
		return nil
	}
	out := make([]float64, len(bars))
	out[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - prevClose)
		lc := math.Abs(bars[i].Low - prevClose)
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR is the Wilder average of the true range (α = 1/period), seeded with TR[0].
func ATR(bars []models.Bar, period int) []float64 {
	if period < 1 {
		period = 1
	}
	return smooth(TrueRange(bars), 1/float64(period))
}

func smooth(series []float64, alpha float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	out := make([]float64, len(series))
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out
}

func closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
