package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"VolPulse/internal/domain/models"
	drepo "VolPulse/internal/domain/repository"
	domsvc "VolPulse/internal/domain/service"
	"VolPulse/internal/services/volatility"
	applogger "VolPulse/pkg/logger"
)

// ErrInvalidInput is returned for empty batches and non-finite values.
var ErrInvalidInput = errors.New("invalid input")

// AlertQueue accepts alerts without blocking; false means the alert was dropped.
type AlertQueue interface {
	Enqueue(a models.AlertPayload) bool
}

// SnapshotNotifier is told that the tracker changed. Notify must not block.
type SnapshotNotifier interface {
	Notify()
}

// BatchIngestor is what the feeds push aggregated batches into.
type BatchIngestor interface {
	IngestBatch(ctx context.Context, values []float64) error
}

// StreamIngestor turns batches into observations, classifies the rolling
// window and records the result. Calls are serialised.
type StreamIngestor struct {
	mu         sync.Mutex
	window     *volatility.Window
	classifier domsvc.PatternClassifier
	tracker    *volatility.HistoryTracker
	alerts     AlertQueue
	notifier   SnapshotNotifier
	metrics    drepo.Metrics
	clock      volatility.Clock
	log        *applogger.Logger
}

// IngestorOption configures StreamIngestor.
type IngestorOption func(*StreamIngestor)

// WithAlertQueue sets where produced patterns are handed off.
func WithAlertQueue(q AlertQueue) IngestorOption {
	return func(s *StreamIngestor) { s.alerts = q }
}

// WithSnapshotNotifier sets the observer told after every record.
func WithSnapshotNotifier(n SnapshotNotifier) IngestorOption {
	return func(s *StreamIngestor) { s.notifier = n }
}

// WithIngestorClock sets the clock used for alert timestamps.
func WithIngestorClock(c volatility.Clock) IngestorOption {
	return func(s *StreamIngestor) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithClassifier replaces the default rule classifier.
func WithClassifier(c domsvc.PatternClassifier) IngestorOption {
	return func(s *StreamIngestor) {
		if c != nil {
			s.classifier = c
		}
	}
}

// NewStreamIngestor wires a window of the given size to tracker.
func NewStreamIngestor(windowSize int, tracker *volatility.HistoryTracker, metrics drepo.Metrics, log *applogger.Logger, opts ...IngestorOption) *StreamIngestor {
	if log == nil {
		log = applogger.Nop()
	}
	s := &StreamIngestor{
		window:     volatility.NewWindow(windowSize),
		classifier: volatility.NewClassifier(),
		tracker:    tracker,
		metrics:    metrics,
		clock:      volatility.SystemClock,
		log:        log.Component("ingestor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestBatch pushes the batch mean into the window and, once enough
// observations exist, classifies and records the result. A produced pattern
// is enqueued for alerting without waiting for delivery.
func (s *StreamIngestor) IngestBatch(ctx context.Context, values []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(values) == 0 {
		s.metrics.RecordError("ingest_empty")
		return fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.metrics.RecordError("ingest_non_finite")
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidInput, i)
		}
	}

	start := time.Now()
	mean := volatility.Mean(values)
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		s.metrics.RecordError("ingest_non_finite")
		return fmt.Errorf("%w: non-finite batch mean", ErrInvalidInput)
	}

	s.mu.Lock()
	s.window.Push(mean)
	if s.window.Len() < volatility.MinObservations {
		s.mu.Unlock()
		s.metrics.RecordObservation(mean)
		return nil
	}
	snapshot := s.window.Values()
	p, ok := s.classifier.Classify(snapshot)
	appended := s.tracker.Record(p, ok, snapshot)
	s.mu.Unlock()

	s.metrics.RecordObservation(mean)
	s.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	if s.notifier != nil {
		s.notifier.Notify()
	}
	if !ok {
		return nil
	}

	s.metrics.RecordPattern(string(p.Type))
	if appended {
		s.metrics.RecordTransition(string(p.Type))
		s.log.Info("pattern transition",
			applogger.String("pattern", string(p.Type)),
			applogger.Float64("confidence", p.Confidence),
			applogger.Float64("trend", p.Metrics.Trend),
			applogger.Float64("volatility", p.Metrics.Volatility),
		)
	}
	if s.alerts != nil {
		s.alerts.Enqueue(models.NewAlertPayload(p, s.clock.Now()))
	}
	return nil
}

// Window returns a copy of the current observations, oldest first.
func (s *StreamIngestor) Window() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Values()
}

// Reader exposes the tracker to presentation layers.
func (s *StreamIngestor) Reader() domsvc.PatternReader { return s.tracker }

var _ BatchIngestor = (*StreamIngestor)(nil)
