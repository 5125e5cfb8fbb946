package models

import "time"

// SignalStatus is the headline status of the latest bars.
type SignalStatus string

const (
	StatusBuy     SignalStatus = "BUY"
	StatusSell    SignalStatus = "SELL"
	StatusWaiting SignalStatus = "WAITING"
)

// Summary condenses the tail of an annotated series.
type Summary struct {
	LastTime      time.Time    `json:"last_time"`
	LastPrice     float64      `json:"last_price"`
	PrevClose     float64      `json:"prev_close"`
	Change        float64      `json:"change"`
	ChangePercent float64      `json:"change_pct"`
	State         Regime       `json:"state"`
	EMA200        float64      `json:"ema200"`
	Baseline      float64      `json:"baseline"`
	Clamped       float64      `json:"clamped"`
	Status        SignalStatus `json:"status"`
}

// SignalReport is the result of one recompute for a symbol and timeframe.
// Note: no transport (json/http) concerns beyond tags here.
type SignalReport struct {
	Symbol      string         `json:"symbol"`
	Timeframe   string         `json:"tf"`
	GeneratedAt time.Time      `json:"generated_at"`
	Available   bool           `json:"available"`
	Warning     string         `json:"warning,omitempty"`
	Summary     *Summary       `json:"summary,omitempty"`
	Bars        []AnnotatedBar `json:"bars,omitempty"`
}

// Latest returns the last annotated bar, if any.
func (r *SignalReport) Latest() (AnnotatedBar, bool) {
	if r == nil || len(r.Bars) == 0 {
		return AnnotatedBar{}, false
	}
	return r.Bars[len(r.Bars)-1], true
}
