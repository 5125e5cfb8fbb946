package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// APIMetrics tracks latency and errors per API endpoint.
type APIMetrics struct {
	Latency *prometheus.HistogramVec
	Errors  *prometheus.CounterVec
}

func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	f := promauto.With(reg)
	return &APIMetrics{
		Latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "proscalper",
				Subsystem: "api",
				Name:      "latency_seconds",
				Help:      "Latency of signal endpoints",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		Errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "proscalper",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Errors by signal endpoint",
			},
			[]string{"endpoint", "code"},
		),
	}
}

// Observe records one call. A nil receiver is a no-op.
func (m *APIMetrics) Observe(endpoint string, start time.Time) {
	if m == nil {
		return
	}
	m.Latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// Fail counts an error response with its application code.
func (m *APIMetrics) Fail(endpoint, code string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(endpoint, code).Inc()
}
