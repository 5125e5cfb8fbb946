package indicator

import (
	"fmt"
	"math"
	"time"

	"ProScalper/internal/domain/models"
)

// ValidateBars checks every bar is finite, internally consistent, and that
// timestamps strictly increase.
func ValidateBars(bars []models.Bar) error {
	for i, b := range bars {
		for _, f := range []struct {
			name string
			v    float64
		}{
			{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}, {"volume", b.Volume},
		} {
			if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
				return fmt.Errorf("%w: bar %d: %s is not finite", ErrInvalidInput, i, f.name)
			}
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: bar %d: negative volume %v", ErrInvalidInput, i, b.Volume)
		}
		if b.High < b.Low {
			return fmt.Errorf("%w: bar %d: high %v below low %v", ErrInvalidInput, i, b.High, b.Low)
		}
		if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
			return fmt.Errorf("%w: bar %d: open/close outside high-low range", ErrInvalidInput, i)
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w: bar %d: timestamp %s not after %s", ErrInvalidInput, i,
				b.Timestamp.Format(time.RFC3339), bars[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
