package indicator

import "ProScalper/internal/domain/models"

// Classify maps a clamped score to a regime. Both comparisons are strict, so a
// score exactly at ±threshold is neutral.
func Classify(clamped, threshold float64) models.Regime {
	switch {
	case clamped > threshold:
		return models.RegimeBullish
	case clamped < -threshold:
		return models.RegimeBearish
	default:
		return models.RegimeNeutral
	}
}

// SignalMachine is the crossover/debounce automaton for one recompute.
// The zero value starts with no prior signal.
type SignalMachine struct {
	last models.Regime
}

// LastSignal is the regime most recently entered through a debounced transition,
// whether or not the trend filter let its flag through.
func (m *SignalMachine) LastSignal() models.Regime { return m.last }

// Step consumes the transition prev -> state on a bar and reports the flags for it.
func (m *SignalMachine) Step(state, prev models.Regime, close, ema200 float64) (buy, sell bool) {
	crossUp := state == models.RegimeBullish && prev != models.RegimeBullish
	crossDown := state == models.RegimeBearish && prev != models.RegimeBearish

	if crossUp && m.last != models.RegimeBullish {
		m.last = models.RegimeBullish
		return close > ema200, false
	}
	if crossDown && m.last != models.RegimeBearish {
		m.last = models.RegimeBearish
		return false, close < ema200
	}
	return false, false
}

// DetectSignals runs a fresh SignalMachine across the whole state series.
// Index 0 never carries a flag.
func DetectSignals(states []models.Regime, close, ema200 []float64) (buy, sell []bool) {
	buy = make([]bool, len(states))
	sell = make([]bool, len(states))
	var m SignalMachine
	for i := 1; i < len(states); i++ {
		buy[i], sell[i] = m.Step(states[i], states[i-1], close[i], ema200[i])
	}
	return buy, sell
}
