package indicator

import (
	"time"

	"ProScalper/internal/domain/models"
)

var t0 = time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)

// barsFromCloses builds bars with open == close and a ±1 range around close.
func barsFromCloses(closes ...float64) []models.Bar {
	out := make([]models.Bar, len(closes))
	for i, c := range closes {
		out[i] = models.Bar{
			Timestamp: t0.Add(time.Duration(i) * 5 * time.Minute),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1,
		}
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
