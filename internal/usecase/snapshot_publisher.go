package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"VolPulse/internal/domain/models"
	drepo "VolPulse/internal/domain/repository"
	"VolPulse/internal/service/cache"
	applogger "VolPulse/pkg/logger"
)

// SnapshotSource provides the display snapshot.
type SnapshotSource interface {
	Snapshot() models.PatternSnapshot
}

// SnapshotPublisher mirrors the tracker snapshot into a BytesCache.
// Notifications coalesce: a burst of records results in one write.
type SnapshotPublisher struct {
	source  SnapshotSource
	cache   cache.BytesCache
	key     string
	ttl     time.Duration
	metrics drepo.Metrics
	log     *applogger.Logger

	notify chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSnapshotPublisher(source SnapshotSource, c cache.BytesCache, key string, ttl time.Duration, metrics drepo.Metrics, log *applogger.Logger) *SnapshotPublisher {
	if log == nil {
		log = applogger.Nop()
	}
	return &SnapshotPublisher{
		source:  source,
		cache:   c,
		key:     key,
		ttl:     ttl,
		metrics: metrics,
		log:     log.Component("snapshot_publisher"),
		notify:  make(chan struct{}, 1),
	}
}

// Notify schedules a publish. It never blocks.
func (p *SnapshotPublisher) Notify() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Start runs the publish loop until ctx is done or Stop is called.
func (p *SnapshotPublisher) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.notify:
				if err := p.Publish(ctx); err != nil && ctx.Err() == nil {
					p.metrics.RecordError("snapshot_publish")
					p.log.Warn("publish failed", applogger.Error(err))
				}
			}
		}
	}()
}

// Stop ends the publish loop and waits for it.
func (p *SnapshotPublisher) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Publish writes the current snapshot synchronously.
func (p *SnapshotPublisher) Publish(ctx context.Context) error {
	start := time.Now()
	b, err := json.Marshal(p.source.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.cache.SetBytes(ctx, p.key, b, p.ttl); err != nil {
		return err
	}
	p.metrics.RecordLatency("snapshot_publish", time.Since(start).Seconds())
	return nil
}

// Load reads the last published snapshot back.
func (p *SnapshotPublisher) Load(ctx context.Context) (models.PatternSnapshot, bool, error) {
	var snap models.PatternSnapshot
	b, ok, err := p.cache.GetBytes(ctx, p.key)
	if err != nil || !ok {
		return snap, false, err
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return snap, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

var _ SnapshotNotifier = (*SnapshotPublisher)(nil)
