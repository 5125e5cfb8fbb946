package indicator

import (
	"math"
	"testing"
	"time"

	"ProScalper/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signalIndexes(series []models.AnnotatedBar) (buys, sells []int) {
	for i, b := range series {
		if b.BuySignal {
			buys = append(buys, i)
		}
		if b.SellSignal {
			sells = append(sells, i)
		}
	}
	return buys, sells
}

func TestProcessStepScenario(t *testing.T) {
	closes := concat(repeat(100, 50), repeat(110, 100), repeat(90, 60))
	out, err := Process(barsFromCloses(closes...))
	require.NoError(t, err)
	require.Len(t, out, 210)

	for i, b := range out {
		switch {
		case i < 50:
			assert.Equal(t, models.RegimeNeutral, b.State, "index %d", i)
		case i < 150:
			assert.Equal(t, models.RegimeBullish, b.State, "index %d", i)
		default:
			assert.Equal(t, models.RegimeBearish, b.State, "index %d", i)
		}
	}

	buys, sells := signalIndexes(out)
	assert.Equal(t, []int{50}, buys)
	assert.Equal(t, []int{150}, sells)

	assert.InDelta(t, 100.0995, out[50].EMA200, 1e-3)
	assert.InDelta(t, 106.1588, out[150].EMA200, 1e-3)
	assert.InDelta(t, -0.4718, out[150].Clamped, 1e-3)
}

// stateRuns collapses consecutive equal states, returning each run's value and start.
func stateRuns(series []models.AnnotatedBar) (states []models.Regime, starts []int) {
	for i, b := range series {
		if len(states) == 0 || states[len(states)-1] != b.State {
			states = append(states, b.State)
			starts = append(starts, i)
		}
	}
	return states, starts
}

func TestProcessBullNeutralBear(t *testing.T) {
	closes := concat(repeat(100, 60), repeat(104, 40), repeat(100, 60), repeat(99.5, 50))
	out, err := Process(barsFromCloses(closes...))
	require.NoError(t, err)

	states, starts := stateRuns(out)
	require.GreaterOrEqual(t, len(states), 4)
	assert.Equal(t, []models.Regime{
		models.RegimeNeutral, models.RegimeBullish, models.RegimeNeutral, models.RegimeBearish,
	}, states[:4])
	assert.Equal(t, 60, starts[1])

	buys, sells := signalIndexes(out)
	assert.Equal(t, []int{60}, buys)
	require.Len(t, sells, 1)
	assert.Equal(t, starts[3], sells[0], "sell fires on the neutral to bearish transition")
	assert.Greater(t, sells[0], starts[2])
	assert.Less(t, out[sells[0]].Close, out[sells[0]].EMA200)
}

func TestProcessSuppressedBuy(t *testing.T) {
	// recovery to 85 stays under the long trend, so the bullish entry has no flag
	closes := concat(repeat(100, 50), repeat(80, 100), repeat(85, 60))
	out, err := Process(barsFromCloses(closes...))
	require.NoError(t, err)

	buys, sells := signalIndexes(out)
	assert.Empty(t, buys)
	assert.Equal(t, []int{50}, sells)
	assert.Equal(t, models.RegimeBullish, out[len(out)-1].State)
	assert.Less(t, out[152].Close, out[152].EMA200)
}

func TestProcessPreservesBars(t *testing.T) {
	bars := barsFromCloses(10, 11, 12, 11, 10)
	out, err := Process(bars)
	require.NoError(t, err)
	require.Len(t, out, len(bars))
	for i := range bars {
		assert.Equal(t, bars[i], out[i].Bar)
	}
	assert.Equal(t, models.RegimeNeutral, out[0].State)
	assert.Equal(t, bars[0].Close, out[0].EMA200)
	assert.Equal(t, bars[0].Close, out[0].Baseline)
}

func TestProcessIsDeterministic(t *testing.T) {
	closes := concat(repeat(100, 20), repeat(104, 20), repeat(97, 20))
	a, err := Process(barsFromCloses(closes...))
	require.NoError(t, err)
	b, err := Process(barsFromCloses(closes...))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestProcessShortInput(t *testing.T) {
	out, err := Process(nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = Process(barsFromCloses(100))
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = Process(barsFromCloses(100, 101))
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestProcessRejectsInvalidBars(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]models.Bar)
	}{
		{"nan close", func(b []models.Bar) { b[2].Close = math.NaN() }},
		{"inf high", func(b []models.Bar) { b[1].High = math.Inf(1) }},
		{"high below low", func(b []models.Bar) { b[3].High, b[3].Low = 90, 110 }},
		{"close above high", func(b []models.Bar) { b[1].Close = b[1].High + 5 }},
		{"negative volume", func(b []models.Bar) { b[0].Volume = -1 }},
		{"duplicate timestamp", func(b []models.Bar) { b[2].Timestamp = b[1].Timestamp }},
		{"descending timestamp", func(b []models.Bar) { b[3].Timestamp = b[0].Timestamp.Add(-time.Minute) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := barsFromCloses(100, 101, 102, 103, 104)
			tt.mutate(bars)
			out, err := Process(bars)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, out)
		})
	}
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.TrendPeriod = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = DefaultParams()
	p.Threshold = 1
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = DefaultParams()
	p.MinTick = 0
	_, err := New(p)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestPipelineUsesParams(t *testing.T) {
	closes := concat(repeat(100, 20), repeat(100.5, 20))
	p := DefaultParams()
	p.Threshold = 0.99

	pl, err := New(p)
	require.NoError(t, err)
	out, err := pl.Process(barsFromCloses(closes...))
	require.NoError(t, err)
	for _, b := range out {
		assert.Equal(t, models.RegimeNeutral, b.State)
	}
}
