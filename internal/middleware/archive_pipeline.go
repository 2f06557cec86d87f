package middleware

import (
	"context"
	"sync"
	"time"

	"VolPulse/internal/domain/models"
	domrepo "VolPulse/internal/domain/repository"
	applogger "VolPulse/pkg/logger"
)

// TransitionArchiver copies new history entries into a TransitionArchive
// from a background worker, so recording never waits on storage.
type TransitionArchiver struct {
	archive domrepo.TransitionArchive
	metrics domrepo.Metrics
	log     *applogger.Logger
	timeout time.Duration
	queue   chan models.Transition

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTransitionArchiver(archive domrepo.TransitionArchive, metrics domrepo.Metrics, log *applogger.Logger, queueSize int) *TransitionArchiver {
	if log == nil {
		log = applogger.Nop()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &TransitionArchiver{
		archive: archive,
		metrics: metrics,
		log:     log.Component("transition_archiver"),
		timeout: 5 * time.Second,
		queue:   make(chan models.Transition, queueSize),
	}
}

// Observe is a tracker transition hook. It drops the entry when the queue is full.
func (a *TransitionArchiver) Observe(e models.HistoryEntry) {
	select {
	case a.queue <- models.TransitionFromEntry(e):
	default:
		a.metrics.RecordError("archive_queue_full")
	}
}

// Start launches the append worker.
func (a *TransitionArchiver) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-a.queue:
				actx, cancel := context.WithTimeout(ctx, a.timeout)
				err := a.archive.Append(actx, t)
				cancel()
				if err != nil {
					a.metrics.RecordError("archive_append")
					a.log.Warn("archive append failed", applogger.String("pattern", string(t.Type)), applogger.Error(err))
				}
			}
		}
	}()
}

// Stop ends the worker and waits for it.
func (a *TransitionArchiver) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}
