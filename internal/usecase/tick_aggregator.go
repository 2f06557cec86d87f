package usecase

import (
	"context"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"VolPulse/internal/domain/models"
	drepo "VolPulse/internal/domain/repository"
	"VolPulse/internal/service/ratelimit"
	applogger "VolPulse/pkg/logger"
)

// TickAggregator collects trades from a market stream, keeps the latest
// price per symbol and emits one batch per interval to the ingestor.
type TickAggregator struct {
	stream   drepo.MarketStream
	ingestor BatchIngestor
	limiter  *ratelimit.Limiter
	metrics  drepo.Metrics
	log      *applogger.Logger
	interval time.Duration
	// retryWait separates reconnect rounds once the stream gives up.
	retryWait time.Duration

	mu     sync.Mutex
	latest map[string]float64
	dirty  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTickAggregator creates a TickAggregator. limiter may be nil.
func NewTickAggregator(stream drepo.MarketStream, ingestor BatchIngestor, limiter *ratelimit.Limiter, interval time.Duration, metrics drepo.Metrics, log *applogger.Logger) *TickAggregator {
	if log == nil {
		log = applogger.Nop()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &TickAggregator{
		stream:    stream,
		ingestor:  ingestor,
		limiter:   limiter,
		metrics:   metrics,
		log:       log.Component("tick_aggregator"),
		interval:  interval,
		retryWait: 10 * time.Second,
		latest:    make(map[string]float64),
	}
}

// IsConnected returns true if the market stream is connected.
func (a *TickAggregator) IsConnected() bool {
	return a.stream.IsConnected()
}

// Start connects the stream and launches the read and flush loops.
func (a *TickAggregator) Start(ctx context.Context) error {
	if err := a.stream.Connect(ctx); err != nil {
		return err
	}
	if err := a.stream.Subscribe(ctx); err != nil {
		return err
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(2)
	go a.readLoop(ctx)
	go a.flushLoop(ctx)
	return nil
}

func (a *TickAggregator) readLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		trCh, errCh := a.stream.Read(ctx)
		err := a.consume(ctx, trCh, errCh)
		if ctx.Err() != nil {
			return
		}
		a.metrics.RecordError("stream")
		a.log.Warn("stream interrupted, reconnecting", applogger.Error(err))
		if !a.reconnect(ctx) {
			return
		}
	}
}

// reconnect retries until the stream is back or ctx is done.
func (a *TickAggregator) reconnect(ctx context.Context) bool {
	for {
		err := a.stream.Reconnect(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		a.metrics.RecordError("stream_reconnect")
		a.log.Error("reconnect failed, retrying",
			applogger.Error(err),
			applogger.Duration("wait", a.retryWait),
		)
		t := time.NewTimer(a.retryWait)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}

// consume returns when the stream fails or closes.
func (a *TickAggregator) consume(ctx context.Context, trCh <-chan *models.Trade, errCh <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			return err
		case t, ok := <-trCh:
			if !ok {
				return nil
			}
			a.Offer(t)
		}
	}
}

func (a *TickAggregator) flushLoop(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil && ctx.Err() == nil {
				a.log.Warn("flush failed", applogger.Error(err))
			}
		}
	}
}

// Offer records a trade as the latest quote of its symbol. It returns false
// when the trade is invalid or throttled.
func (a *TickAggregator) Offer(t *models.Trade) bool {
	if t == nil || t.Symbol == "" || t.Price <= 0 || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		a.metrics.RecordError("trade_invalid")
		return false
	}
	if a.limiter != nil && !a.limiter.Allow(t.Symbol) {
		return false
	}
	a.mu.Lock()
	a.latest[t.Symbol] = t.Price
	a.dirty = true
	a.mu.Unlock()
	return true
}

// Flush emits the latest price of every symbol seen, ordered by symbol.
// Nothing is emitted when no quote arrived since the previous flush.
func (a *TickAggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return nil
	}
	symbols := slices.Sorted(maps.Keys(a.latest))
	batch := make([]float64, len(symbols))
	for i, s := range symbols {
		batch[i] = a.latest[s]
	}
	a.dirty = false
	a.mu.Unlock()

	return a.ingestor.IngestBatch(ctx, batch)
}

// Shutdown stops the loops and closes the stream.
func (a *TickAggregator) Shutdown(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	err := a.stream.Close()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}
