package metrics

import (
	"time"

	"ProScalper/internal/domain/models"
	"ProScalper/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	recompute *prometheus.HistogramVec
	bars      *prometheus.CounterVec
	signals   *prometheus.CounterVec
	lastPrice *prometheus.GaugeVec
	state     *prometheus.GaugeVec
	errors    *prometheus.CounterVec
}

var _ repository.Metrics = (*Recorder)(nil)

// New creates a Prometheus metrics recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		recompute: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proscalper_recompute_duration_seconds",
				Help:    "Duration of a full fetch and recompute",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"timeframe"},
		),
		bars: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proscalper_bars_processed_total",
				Help: "Total number of bars run through the pipeline",
			},
			[]string{"symbol"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proscalper_signals_total",
				Help: "Signals observed on the latest bar",
			},
			[]string{"symbol", "side"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "proscalper_last_price",
				Help: "Last close seen for a symbol",
			},
			[]string{"symbol"},
		),
		state: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "proscalper_regime_state",
				Help: "Regime of the latest bar (-1, 0, 1)",
			},
			[]string{"symbol"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proscalper_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordRecompute(tf string, d time.Duration) {
	r.recompute.WithLabelValues(tf).Observe(d.Seconds())
}

func (r *Recorder) RecordBars(symbol string, n int) {
	r.bars.WithLabelValues(symbol).Add(float64(n))
}

func (r *Recorder) RecordSignal(symbol string, side models.Side) {
	r.signals.WithLabelValues(symbol, string(side)).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordState(symbol string, state models.Regime) {
	r.state.WithLabelValues(symbol).Set(float64(state))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}
