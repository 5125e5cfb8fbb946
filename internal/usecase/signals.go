package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ProScalper/internal/domain/models"
	domrepo "ProScalper/internal/domain/repository"
	domsvc "ProScalper/internal/domain/service"
	"ProScalper/internal/services/indicator"
	applogger "ProScalper/pkg/logger"
)

const (
	DefaultLimit = 300
	MinLimit     = 2
	MaxLimit     = 2000
)

// ErrSymbolRequired is returned when no symbol is given.
var ErrSymbolRequired = errors.New("symbol required")

// SignalsUseCase fetches bars, runs the signal pipeline and summarises the result.
type SignalsUseCase struct {
	source   domrepo.BarSource
	pipeline domsvc.SignalPipeline
	metrics  domrepo.Metrics
	now      func() time.Time
	l        *applogger.Logger
}

func NewSignalsUseCase(source domrepo.BarSource, pipeline domsvc.SignalPipeline, metrics domrepo.Metrics) *SignalsUseCase {
	return &SignalsUseCase{source: source, pipeline: pipeline, metrics: metrics, now: time.Now}
}

// SetLogger injects a structured logger.
func (uc *SignalsUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

type ComputeParams struct {
	Symbol    string
	Timeframe domrepo.Timeframe
	Limit     int
}

// Compute runs one recompute. A failed fetch is not an error: the report comes
// back with Available=false and a warning. Malformed bars fail with an error
// wrapping indicator.ErrInvalidInput.
func (uc *SignalsUseCase) Compute(ctx context.Context, p ComputeParams) (*models.SignalReport, error) {
	symbol := models.NormalizeSymbol(p.Symbol)
	if symbol == "" {
		return nil, ErrSymbolRequired
	}
	tf := domrepo.NormalizeTimeframe(p.Timeframe.String())
	limit := clampLimit(p.Limit)

	start := time.Now()
	report := &models.SignalReport{
		Symbol:      symbol,
		Timeframe:   tf.String(),
		GeneratedAt: uc.now().UTC(),
	}

	bars, err := uc.source.GetLatestBars(ctx, symbol, tf, limit)
	if err != nil {
		uc.recordError("fetch")
		if uc.l != nil {
			uc.l.Warn("signals.fetch failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", tf.String()),
				applogger.Error(err),
			)
		}
		bars = nil
		report.Warning = fmt.Sprintf("could not load data for %s", symbol)
	}

	series, err := uc.pipeline.Process(bars)
	if err != nil {
		uc.recordError("invalid_input")
		return nil, fmt.Errorf("process %s %s: %w", symbol, tf, err)
	}

	summary, ok := indicator.Summarize(series)
	if !ok {
		if report.Warning == "" {
			report.Warning = fmt.Sprintf("no data for %s", symbol)
		}
		uc.recordRecompute(tf, time.Since(start))
		return report, nil
	}

	report.Available = true
	report.Summary = &summary
	report.Bars = series
	uc.observe(symbol, tf, series, time.Since(start))

	if uc.l != nil {
		uc.l.Debug("signals.computed",
			applogger.String("symbol", symbol),
			applogger.String("tf", tf.String()),
			applogger.Int("bars", len(series)),
			applogger.String("status", string(summary.Status)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return report, nil
}

func (uc *SignalsUseCase) observe(symbol string, tf domrepo.Timeframe, series []models.AnnotatedBar, d time.Duration) {
	if uc.metrics == nil {
		return
	}
	last := series[len(series)-1]
	uc.metrics.RecordRecompute(tf.String(), d)
	uc.metrics.RecordBars(symbol, len(series))
	uc.metrics.RecordLastPrice(symbol, last.Close)
	uc.metrics.RecordState(symbol, last.State)
	if last.BuySignal {
		uc.metrics.RecordSignal(symbol, models.SideBuy)
	}
	if last.SellSignal {
		uc.metrics.RecordSignal(symbol, models.SideSell)
	}
}

func (uc *SignalsUseCase) recordRecompute(tf domrepo.Timeframe, d time.Duration) {
	if uc.metrics != nil {
		uc.metrics.RecordRecompute(tf.String(), d)
	}
}

func (uc *SignalsUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n < MinLimit:
		return MinLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}
