package indicator

import (
	"fmt"

	"ProScalper/internal/domain/models"
	domsvc "ProScalper/internal/domain/service"
)

// Params controls every constant of the pipeline.
type Params struct {
	TrendPeriod         int
	BaselinePeriod      int
	ATRPeriod           int
	DeviationMultiplier float64
	MinTick             float64
	SignalPeriod        int
	ClipLimit           float64
	Threshold           float64
}

// DefaultParams returns the standard scalper configuration.
func DefaultParams() Params {
	return Params{
		TrendPeriod:         200,
		BaselinePeriod:      80,
		ATRPeriod:           15,
		DeviationMultiplier: 1.8,
		MinTick:             1e-7,
		SignalPeriod:        8,
		ClipLimit:           20,
		Threshold:           0.08,
	}
}

// Validate rejects parameter sets that would make the pipeline degenerate.
func (p Params) Validate() error {
	if p.TrendPeriod < 1 || p.BaselinePeriod < 1 || p.ATRPeriod < 1 || p.SignalPeriod < 1 {
		return fmt.Errorf("%w: periods must be >= 1", ErrInvalidParams)
	}
	if p.DeviationMultiplier <= 0 {
		return fmt.Errorf("%w: deviation_multiplier must be > 0", ErrInvalidParams)
	}
	if p.MinTick <= 0 {
		return fmt.Errorf("%w: min_tick must be > 0", ErrInvalidParams)
	}
	if p.ClipLimit <= 0 {
		return fmt.Errorf("%w: clip_limit must be > 0", ErrInvalidParams)
	}
	if p.Threshold < 0 || p.Threshold >= 1 {
		return fmt.Errorf("%w: threshold must be in [0, 1)", ErrInvalidParams)
	}
	return nil
}

// Pipeline is a configured, stateless signal pipeline.
type Pipeline struct {
	params Params
}

var _ domsvc.SignalPipeline = (*Pipeline)(nil)

// New builds a Pipeline after validating p.
func New(p Params) (*Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{params: p}, nil
}

// Params returns the pipeline configuration.
func (p *Pipeline) Params() Params { return p.params }

// Process annotates bars with the pipeline's params.
func (p *Pipeline) Process(bars []models.Bar) ([]models.AnnotatedBar, error) {
	return ProcessWithParams(bars, p.params)
}

// Process annotates bars using DefaultParams.
func Process(bars []models.Bar) ([]models.AnnotatedBar, error) {
	return ProcessWithParams(bars, DefaultParams())
}

// ProcessWithParams recomputes the full annotated series from index 0.
// Fewer than 2 bars yields an empty series and no error. Any invalid bar
// fails the whole recompute.
func ProcessWithParams(bars []models.Bar, p Params) ([]models.AnnotatedBar, error) {
	if len(bars) < 2 {
		return []models.AnnotatedBar{}, nil
	}
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}

	// smoothing
	cl := closes(bars)
	ema200 := EMA(cl, p.TrendPeriod)
	baseline := EMA(cl, p.BaselinePeriod)
	atr := ATR(bars, p.ATRPeriod)

	// oscillator
	dev := RawDeviation(cl, baseline, atr, p.DeviationMultiplier, p.MinTick)
	sig := EMA(dev, p.SignalPeriod)

	// state machine
	states := make([]models.Regime, len(bars))
	out := make([]models.AnnotatedBar, len(bars))
	for i := range bars {
		clamped := Clamp(sig[i], p.ClipLimit)
		if i > 0 {
			states[i] = Classify(clamped, p.Threshold)
		}
		out[i] = models.AnnotatedBar{
			Bar:          bars[i],
			EMA200:       ema200[i],
			Baseline:     baseline[i],
			ATR:          atr[i],
			RawDeviation: dev[i],
			SignalLine:   sig[i],
			Clamped:      clamped,
			State:        states[i],
		}
	}
	buy, sell := DetectSignals(states, cl, ema200)
	for i := range out {
		out[i].BuySignal = buy[i]
		out[i].SellSignal = sell[i]
	}
	return out, nil
}
