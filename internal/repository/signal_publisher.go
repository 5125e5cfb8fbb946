package repository

import (
	"context"
	"fmt"
	"sync"

	"ProScalper/internal/domain/models"
	domrepo "ProScalper/internal/domain/repository"
	pkgkafka "ProScalper/pkg/kafka"
	applogger "ProScalper/pkg/logger"
)

// EventProducer is the subset of pkg/kafka.Producer used for signal events.
type EventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

var _ EventProducer = (*pkgkafka.Producer)(nil)

// KafkaSignalPublisher writes signal events as JSON keyed by symbol, so every
// event for one symbol lands on the same partition in order.
type KafkaSignalPublisher struct {
	producer  EventProducer
	topic     string
	l         *applogger.Logger
	closeOnce sync.Once
	closeErr  error
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

func NewKafkaSignalPublisher(p EventProducer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: p, topic: topic}
}

// SetLogger injects a structured logger.
func (p *KafkaSignalPublisher) SetLogger(l *applogger.Logger) { p.l = l }

func (p *KafkaSignalPublisher) Publish(ctx context.Context, ev models.SignalEvent) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev); err != nil {
		return fmt.Errorf("publish %s %s: %w", ev.Symbol, ev.Side, err)
	}
	if p.l != nil {
		p.l.Info("signal.published",
			applogger.String("topic", p.topic),
			applogger.String("symbol", ev.Symbol),
			applogger.String("tf", ev.Timeframe),
			applogger.String("side", string(ev.Side)),
			applogger.Time("bar_time", ev.BarTime),
			applogger.Float64("price", ev.Price),
		)
	}
	return nil
}

// Close closes the producer once; later calls return the first result.
func (p *KafkaSignalPublisher) Close() error {
	p.closeOnce.Do(func() { p.closeErr = p.producer.Close() })
	return p.closeErr
}

// LogSignalPublisher only logs events. Used when Kafka is disabled.
type LogSignalPublisher struct {
	l *applogger.Logger
}

var _ domrepo.SignalPublisher = (*LogSignalPublisher)(nil)

func NewLogSignalPublisher(l *applogger.Logger) *LogSignalPublisher {
	if l == nil {
		l = applogger.Nop()
	}
	return &LogSignalPublisher{l: l}
}

func (p *LogSignalPublisher) Publish(_ context.Context, ev models.SignalEvent) error {
	p.l.Info("signal.event",
		applogger.String("symbol", ev.Symbol),
		applogger.String("tf", ev.Timeframe),
		applogger.String("side", string(ev.Side)),
		applogger.Time("bar_time", ev.BarTime),
		applogger.Float64("price", ev.Price),
		applogger.Float64("ema200", ev.EMA200),
		applogger.Float64("clamped", ev.Clamped),
	)
	return nil
}

func (p *LogSignalPublisher) Close() error { return nil }
