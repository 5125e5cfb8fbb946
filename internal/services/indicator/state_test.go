package indicator

import (
	"testing"

	"ProScalper/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

const (
	bull = models.RegimeBullish
	bear = models.RegimeBearish
	flat = models.RegimeNeutral
)

func TestClassifyBoundary(t *testing.T) {
	tests := []struct {
		in   float64
		want models.Regime
	}{
		{0.08, flat},
		{0.0800001, bull},
		{-0.08, flat},
		{-0.0800001, bear},
		{0, flat},
		{0.99, bull},
		{-0.99, bear},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.in, 0.08), "clamped=%v", tt.in)
	}
}

func TestDetectSignalsDebounce(t *testing.T) {
	// price above trend everywhere so the filter never interferes
	states := []models.Regime{flat, bull, flat, bull, bear, bull}
	close := repeat(110, len(states))
	ema := repeat(100, len(states))

	buy, sell := DetectSignals(states, close, ema)

	// 0 -> 1 -> 0 -> 1 fires once; 1 -> -1 resets the debounce; -1 -> 1 fires again
	assert.Equal(t, []bool{false, true, false, false, false, true}, buy)
	// close above trend suppresses the sell at index 4
	assert.Equal(t, []bool{false, false, false, false, false, false}, sell)
}

func TestDetectSignalsAlternating(t *testing.T) {
	states := []models.Regime{flat, bull, bear, bull, bear}
	close := []float64{100, 110, 90, 110, 90}
	ema := repeat(100, len(states))

	buy, sell := DetectSignals(states, close, ema)

	assert.Equal(t, []bool{false, true, false, true, false}, buy)
	assert.Equal(t, []bool{false, false, true, false, true}, sell)
}

func TestTrendFilterConsumesDebounce(t *testing.T) {
	var m SignalMachine

	// entry into bullish below the trend is suppressed but recorded
	buy, sell := m.Step(bull, flat, 95, 100)
	assert.False(t, buy)
	assert.False(t, sell)
	assert.Equal(t, bull, m.LastSignal())

	// dip to neutral and back while now above trend: no re-trigger
	_, _ = m.Step(flat, bull, 105, 100)
	buy, _ = m.Step(bull, flat, 105, 100)
	assert.False(t, buy)
	assert.Equal(t, bull, m.LastSignal())

	// an opposite cross re-arms the machine
	_, sell = m.Step(bear, bull, 95, 100)
	assert.True(t, sell)
	assert.Equal(t, bear, m.LastSignal())
}

func TestTrendFilterTieSuppresses(t *testing.T) {
	var m SignalMachine
	buy, _ := m.Step(bull, flat, 100, 100)
	assert.False(t, buy)

	var m2 SignalMachine
	_, sell := m2.Step(bear, flat, 100, 100)
	assert.False(t, sell)
}

func TestAtMostOneFlagPerBar(t *testing.T) {
	states := []models.Regime{flat, bull, bear, flat, bear, bull, bull, bear}
	close := []float64{1, 3, 0, 2, 0, 3, 3, 0}
	ema := repeat(1.5, len(states))

	buy, sell := DetectSignals(states, close, ema)
	for i := range states {
		assert.False(t, buy[i] && sell[i], "index %d", i)
	}
	assert.False(t, buy[0])
	assert.False(t, sell[0])
}
