package usecase

import (
	"context"
	"errors"
	"testing"

	"ProScalper/internal/domain/models"
	domrepo "ProScalper/internal/domain/repository"
	"ProScalper/internal/services/indicator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUseCase(t *testing.T, src *fakeSource, m *fakeMetrics) *SignalsUseCase {
	t.Helper()
	p, err := indicator.New(indicator.DefaultParams())
	require.NoError(t, err)
	return NewSignalsUseCase(src, p, m)
}

func TestComputeBuyOnLatestBar(t *testing.T) {
	src := &fakeSource{}
	src.set("BTC_USDT", barsFromCloses(breakout(50)...))
	m := newFakeMetrics()
	uc := newUseCase(t, src, m)

	r, err := uc.Compute(context.Background(), ComputeParams{Symbol: "btc/usdt", Timeframe: domrepo.TF5m, Limit: 300})
	require.NoError(t, err)

	assert.True(t, r.Available)
	assert.Empty(t, r.Warning)
	assert.Equal(t, "BTC_USDT", r.Symbol)
	assert.Equal(t, "5m", r.Timeframe)
	require.Len(t, r.Bars, 51)
	require.NotNil(t, r.Summary)
	assert.Equal(t, models.StatusBuy, r.Summary.Status)
	assert.Equal(t, 110.0, r.Summary.LastPrice)
	assert.InDelta(t, 10.0, r.Summary.ChangePercent, 1e-9)

	assert.Equal(t, []models.Side{models.SideBuy}, m.signals)
	assert.Equal(t, 51, m.bars["BTC_USDT"])
	assert.Equal(t, 110.0, m.price["BTC_USDT"])
	assert.Equal(t, models.RegimeBullish, m.state["BTC_USDT"])
	assert.Equal(t, 1, m.recompute)
}

func TestComputeFetchFailureIsWarning(t *testing.T) {
	src := &fakeSource{err: errors.New("timeout")}
	m := newFakeMetrics()
	uc := newUseCase(t, src, m)

	r, err := uc.Compute(context.Background(), ComputeParams{Symbol: "ETH_USDT"})
	require.NoError(t, err)
	assert.False(t, r.Available)
	assert.Equal(t, "could not load data for ETH_USDT", r.Warning)
	assert.Nil(t, r.Summary)
	assert.Empty(t, r.Bars)
	assert.Equal(t, []string{"fetch"}, m.errors)
}

func TestComputeInsufficientHistory(t *testing.T) {
	src := &fakeSource{}
	src.set("SOL_USDT", barsFromCloses(150))
	uc := newUseCase(t, src, newFakeMetrics())

	r, err := uc.Compute(context.Background(), ComputeParams{Symbol: "SOL_USDT"})
	require.NoError(t, err)
	assert.False(t, r.Available)
	assert.Equal(t, "no data for SOL_USDT", r.Warning)
}

func TestComputeInvalidInput(t *testing.T) {
	bars := barsFromCloses(100, 101, 102)
	bars[1].High = bars[1].Low - 1
	src := &fakeSource{}
	src.set("BTC_USDT", bars)
	m := newFakeMetrics()
	uc := newUseCase(t, src, m)

	_, err := uc.Compute(context.Background(), ComputeParams{Symbol: "BTC_USDT"})
	require.Error(t, err)
	assert.ErrorIs(t, err, indicator.ErrInvalidInput)
	assert.Equal(t, []string{"invalid_input"}, m.errors)
}

func TestComputeNormalizesParams(t *testing.T) {
	src := &fakeSource{}
	uc := newUseCase(t, src, newFakeMetrics())
	ctx := context.Background()

	_, err := uc.Compute(ctx, ComputeParams{Symbol: "  "})
	assert.ErrorIs(t, err, ErrSymbolRequired)

	_, _ = uc.Compute(ctx, ComputeParams{Symbol: "btc-usdt", Limit: 5000})
	_, _ = uc.Compute(ctx, ComputeParams{Symbol: "BTC_USDT", Timeframe: domrepo.TF1h, Limit: 1})
	require.Len(t, src.calls, 2)
	assert.Equal(t, sourceCall{symbol: "BTC_USDT", tf: domrepo.TF5m, n: MaxLimit}, src.calls[0])
	assert.Equal(t, sourceCall{symbol: "BTC_USDT", tf: domrepo.TF1h, n: MinLimit}, src.calls[1])
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, clampLimit(0))
	assert.Equal(t, DefaultLimit, clampLimit(-3))
	assert.Equal(t, 2, clampLimit(1))
	assert.Equal(t, 500, clampLimit(500))
	assert.Equal(t, 2000, clampLimit(2001))
}
