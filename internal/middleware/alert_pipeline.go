package middleware

import (
	"context"
	"sync"
	"time"

	"VolPulse/internal/domain/models"
	domrepo "VolPulse/internal/domain/repository"
	applogger "VolPulse/pkg/logger"
)

// AlertDispatcher sits between the ingestor and an AlertSink. Enqueue never
// blocks; a single worker delivers alerts in order.
type AlertDispatcher struct {
	sink    domrepo.AlertSink
	metrics domrepo.Metrics
	log     *applogger.Logger
	timeout time.Duration
	queue   chan models.AlertPayload

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

type DispatcherOption func(*AlertDispatcher)

// WithQueueSize sets the number of alerts held while the sink is busy.
func WithQueueSize(n int) DispatcherOption {
	return func(d *AlertDispatcher) {
		if n > 0 {
			d.queue = make(chan models.AlertPayload, n)
		}
	}
}

// WithDeliveryTimeout bounds each Deliver call.
func WithDeliveryTimeout(t time.Duration) DispatcherOption {
	return func(d *AlertDispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// NewAlertDispatcher creates a dispatcher.
func NewAlertDispatcher(sink domrepo.AlertSink, metrics domrepo.Metrics, log *applogger.Logger, opts ...DispatcherOption) *AlertDispatcher {
	if log == nil {
		log = applogger.Nop()
	}
	d := &AlertDispatcher{
		sink:    sink,
		metrics: metrics,
		log:     log.Component("alert_dispatcher"),
		timeout: 5 * time.Second,
		queue:   make(chan models.AlertPayload, 256),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue hands an alert to the worker. It returns false and counts a drop
// when the queue is full or the dispatcher is stopped.
func (d *AlertDispatcher) Enqueue(a models.AlertPayload) bool {
	select {
	case <-d.stopCh:
		d.metrics.RecordAlert("dropped")
		return false
	default:
	}
	select {
	case d.queue <- a:
		return true
	default:
		d.metrics.RecordAlert("dropped")
		d.log.Warn("alert queue full, dropping", applogger.String("pattern", string(a.Type)))
		return false
	}
}

// Len returns the number of queued alerts.
func (d *AlertDispatcher) Len() int { return len(d.queue) }

// Start launches the delivery worker.
func (d *AlertDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started || d.stopped {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		for {
			select {
			case <-d.stopCh:
				return
			case <-ctx.Done():
				return
			case a := <-d.queue:
				d.deliver(ctx, a)
			}
		}
	}()
}

func (d *AlertDispatcher) deliver(ctx context.Context, a models.AlertPayload) {
	start := time.Now()
	dctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sink.Deliver(dctx, a); err != nil {
		d.metrics.RecordAlert("failed")
		d.metrics.RecordError("alert_delivery")
		d.log.Error("alert delivery failed",
			applogger.String("pattern", string(a.Type)),
			applogger.Error(err),
		)
		return
	}
	d.metrics.RecordAlert("delivered")
	d.metrics.RecordLatency("alert_delivery", time.Since(start).Seconds())
}

// Stop halts the worker without draining the queue and waits for the
// in-flight delivery to finish.
func (d *AlertDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	started := d.started
	close(d.stopCh)
	d.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
