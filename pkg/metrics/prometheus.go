package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	observations prometheus.Counter
	lastValue    prometheus.Gauge
	patterns     *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New registers the recorder's collectors on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers collectors on reg (use a fresh registry in tests).
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		observations: f.NewCounter(prometheus.CounterOpts{
			Name: "volpulse_observations_total",
			Help: "Total number of aggregate observations ingested",
		}),
		lastValue: f.NewGauge(prometheus.GaugeOpts{
			Name: "volpulse_last_observation",
			Help: "Most recent aggregate observation",
		}),
		patterns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volpulse_patterns_classified_total",
				Help: "Classification results by pattern type",
			},
			[]string{"pattern"},
		),
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volpulse_pattern_transitions_total",
				Help: "History entries appended by pattern type",
			},
			[]string{"pattern"},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volpulse_alerts_total",
				Help: "Alert handoffs by result",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "volpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordObservation counts an ingested value and tracks the latest one.
func (r *Recorder) RecordObservation(value float64) {
	r.observations.Inc()
	r.lastValue.Set(value)
}

// RecordPattern counts a classification result ("none" when nothing matched).
func (r *Recorder) RecordPattern(pattern string) {
	r.patterns.WithLabelValues(pattern).Inc()
}

// RecordTransition counts a new history entry.
func (r *Recorder) RecordTransition(pattern string) {
	r.transitions.WithLabelValues(pattern).Inc()
}

// RecordAlert counts an alert handoff outcome: queued, delivered, failed, dropped.
func (r *Recorder) RecordAlert(result string) {
	r.alerts.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordObservation(float64)     {}
func (Noop) RecordPattern(string)          {}
func (Noop) RecordTransition(string)       {}
func (Noop) RecordAlert(string)            {}
func (Noop) RecordError(string)            {}
func (Noop) RecordLatency(string, float64) {}
