package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// APIMetrics tracks pattern query endpoints by name.
type APIMetrics struct {
	Latency *prometheus.HistogramVec
	Errors  *prometheus.CounterVec
}

// NewAPIMetrics registers the collectors on reg.
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	f := promauto.With(reg)
	return &APIMetrics{
		Latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "volpulse",
				Subsystem: "api",
				Name:      "latency_seconds",
				Help:      "Latency of pattern API endpoints",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		Errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "volpulse",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Errors by pattern API endpoint",
			},
			[]string{"endpoint"},
		),
	}
}
