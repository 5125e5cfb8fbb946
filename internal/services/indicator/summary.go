package indicator

import "ProScalper/internal/domain/models"

// Summarize reports the tail of an annotated series. The status looks at the
// last two bars, preferring BUY over SELL. It returns false for fewer than 2 bars.
func Summarize(series []models.AnnotatedBar) (models.Summary, bool) {
	n := len(series)
	if n < 2 {
		return models.Summary{}, false
	}
	last, prev := series[n-1], series[n-2]

	change := last.Close - prev.Close
	var pct float64
	if prev.Close != 0 {
		pct = change / prev.Close * 100
	}

	status := models.StatusWaiting
	switch {
	case last.BuySignal || prev.BuySignal:
		status = models.StatusBuy
	case last.SellSignal || prev.SellSignal:
		status = models.StatusSell
	}

	return models.Summary{
		LastTime:      last.Timestamp,
		LastPrice:     last.Close,
		PrevClose:     prev.Close,
		Change:        change,
		ChangePercent: pct,
		State:         last.State,
		EMA200:        last.EMA200,
		Baseline:      last.Baseline,
		Clamped:       last.Clamped,
		Status:        status,
	}, true
}

// Events lists every flagged bar of the series as signal events.
func Events(symbol, tf string, series []models.AnnotatedBar) []models.SignalEvent {
	var out []models.SignalEvent
	for _, b := range series {
		if ev, ok := models.EventFromBar(symbol, tf, b, b.Timestamp); ok {
			out = append(out, ev)
		}
	}
	return out
}
