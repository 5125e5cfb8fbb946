package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := map[string]string{
		"btc/usdt":   "BTC_USDT",
		"BTC-USDT":   "BTC_USDT",
		" eth_usdt ": "ETH_USDT",
		"SOL_USDT":   "SOL_USDT",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSymbol(in), "input %q", in)
	}
	assert.Empty(t, NormalizeSymbol("  "))
}

func TestEventFromBar(t *testing.T) {
	ts := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	now := ts.Add(3 * time.Second)
	bar := AnnotatedBar{Bar: Bar{Timestamp: ts, Close: 101.5}, EMA200: 99, Clamped: 0.3, BuySignal: true}

	ev, ok := EventFromBar("BTC_USDT", "5m", bar, now)
	assert.True(t, ok)
	assert.Equal(t, SignalEvent{
		Symbol:    "BTC_USDT",
		Timeframe: "5m",
		Side:      SideBuy,
		BarTime:   ts,
		Price:     101.5,
		EMA200:    99,
		Clamped:   0.3,
		EmittedAt: now,
	}, ev)

	bar.BuySignal, bar.SellSignal = false, true
	ev, ok = EventFromBar("BTC_USDT", "5m", bar, now)
	assert.True(t, ok)
	assert.Equal(t, SideSell, ev.Side)

	bar.SellSignal = false
	_, ok = EventFromBar("BTC_USDT", "5m", bar, now)
	assert.False(t, ok)
}

func TestReportLatest(t *testing.T) {
	var nilReport *SignalReport
	_, ok := nilReport.Latest()
	assert.False(t, ok)

	r := &SignalReport{Bars: []AnnotatedBar{{State: RegimeNeutral}, {State: RegimeBearish}}}
	last, ok := r.Latest()
	assert.True(t, ok)
	assert.Equal(t, RegimeBearish, last.State)
	assert.Equal(t, "bearish", last.State.String())
}
