package repository

import (
	"context"
	"time"

	"ProScalper/internal/domain/models"
)

// BarSource returns the most recent bars for a symbol, oldest first.
type BarSource interface {
	GetLatestBars(ctx context.Context, symbol string, tf Timeframe, n int) ([]models.Bar, error)
}

// SignalPublisher delivers signal events downstream.
type SignalPublisher interface {
	Publish(ctx context.Context, ev models.SignalEvent) error
	Close() error
}

type Metrics interface {
	RecordRecompute(tf string, d time.Duration)
	RecordBars(symbol string, n int)
	RecordSignal(symbol string, side models.Side)
	RecordLastPrice(symbol string, price float64)
	RecordState(symbol string, state models.Regime)
	RecordError(kind string)
}
