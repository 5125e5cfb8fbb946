package models

import (
	"strings"
	"time"
)

// Bar is one OHLCV record for a fixed time interval.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Regime is the per-bar directional classification.
type Regime int

const (
	RegimeBearish Regime = -1
	RegimeNeutral Regime = 0
	RegimeBullish Regime = 1
)

func (r Regime) String() string {
	switch r {
	case RegimeBullish:
		return "bullish"
	case RegimeBearish:
		return "bearish"
	default:
		return "neutral"
	}
}

// AnnotatedBar is a Bar plus every derived indicator value for that index.
type AnnotatedBar struct {
	Bar
	EMA200       float64 `json:"ema200"`
	Baseline     float64 `json:"baseline"`
	ATR          float64 `json:"atr"`
	RawDeviation float64 `json:"raw_deviation"`
	SignalLine   float64 `json:"signal_line"`
	Clamped      float64 `json:"clamped"`
	State        Regime  `json:"state"`
	BuySignal    bool    `json:"buy_signal"`
	SellSignal   bool    `json:"sell_signal"`
}

// Side of an emitted signal event.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// SignalEvent is a Buy or Sell flag raised on a specific bar.
type SignalEvent struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"tf"`
	Side      Side      `json:"side"`
	BarTime   time.Time `json:"bar_time"`
	Price     float64   `json:"price"`
	EMA200    float64   `json:"ema200"`
	Clamped   float64   `json:"clamped"`
	EmittedAt time.Time `json:"emitted_at"`
}

// EventFromBar builds the event for an annotated bar, if it carries a flag.
func EventFromBar(symbol, tf string, b AnnotatedBar, now time.Time) (SignalEvent, bool) {
	var side Side
	switch {
	case b.BuySignal:
		side = SideBuy
	case b.SellSignal:
		side = SideSell
	default:
		return SignalEvent{}, false
	}
	return SignalEvent{
		Symbol:    symbol,
		Timeframe: tf,
		Side:      side,
		BarTime:   b.Timestamp,
		Price:     b.Close,
		EMA200:    b.EMA200,
		Clamped:   b.Clamped,
		EmittedAt: now,
	}, true
}

// NormalizeSymbol upper-cases a pair and joins base and quote with '_'
// ("btc/usdt" and "BTC-USDT" both become "BTC_USDT").
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("/", "_", "-", "_").Replace(s)
}
