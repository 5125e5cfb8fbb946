package usecase

import (
	"context"
	"sync"
	"time"

	"ProScalper/internal/domain/models"
	domrepo "ProScalper/internal/domain/repository"
)

var t0 = time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)

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

// breakout is flat at 100 then jumps to 110 on the last bar, which carries a Buy.
func breakout(flat int) []float64 {
	return append(repeat(100, flat), 110)
}

type sourceCall struct {
	symbol string
	tf     domrepo.Timeframe
	n      int
}

type fakeSource struct {
	mu    sync.Mutex
	bars  map[string][]models.Bar
	err   error
	calls []sourceCall
}

func (f *fakeSource) GetLatestBars(_ context.Context, symbol string, tf domrepo.Timeframe, n int) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sourceCall{symbol: symbol, tf: tf, n: n})
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[symbol], nil
}

func (f *fakeSource) set(symbol string, bars []models.Bar) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bars == nil {
		f.bars = map[string][]models.Bar{}
	}
	f.bars[symbol] = bars
}

type fakeMetrics struct {
	mu        sync.Mutex
	errors    []string
	signals   []models.Side
	recompute int
	bars      map[string]int
	price     map[string]float64
	state     map[string]models.Regime
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{bars: map[string]int{}, price: map[string]float64{}, state: map[string]models.Regime{}}
}

func (m *fakeMetrics) RecordRecompute(string, time.Duration) {
	m.mu.Lock()
	m.recompute++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordBars(symbol string, n int) {
	m.mu.Lock()
	m.bars[symbol] += n
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordSignal(_ string, side models.Side) {
	m.mu.Lock()
	m.signals = append(m.signals, side)
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordLastPrice(symbol string, price float64) {
	m.mu.Lock()
	m.price[symbol] = price
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordState(symbol string, state models.Regime) {
	m.mu.Lock()
	m.state[symbol] = state
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors = append(m.errors, kind)
	m.mu.Unlock()
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.SignalEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev models.SignalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeBroadcaster struct {
	mu  sync.Mutex
	got []interface{}
}

func (b *fakeBroadcaster) Broadcast(v interface{}) {
	b.mu.Lock()
	b.got = append(b.got, v)
	b.mu.Unlock()
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.got)
}
