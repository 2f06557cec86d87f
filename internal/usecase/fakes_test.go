package usecase

import (
	"context"
	"sync"
	"time"

	"VolPulse/internal/domain/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0).UTC()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeMetrics struct {
	mu           sync.Mutex
	observations []float64
	patterns     []string
	transitions  []string
	errs         map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errs: map[string]int{}} }

func (m *fakeMetrics) RecordObservation(v float64) {
	m.mu.Lock()
	m.observations = append(m.observations, v)
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordPattern(p string) {
	m.mu.Lock()
	m.patterns = append(m.patterns, p)
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordTransition(p string) {
	m.mu.Lock()
	m.transitions = append(m.transitions, p)
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordAlert(string) {}

func (m *fakeMetrics) RecordError(k string) {
	m.mu.Lock()
	m.errs[k]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) errCount(k string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[k]
}

type fakeQueue struct {
	mu   sync.Mutex
	got  []models.AlertPayload
	full bool
}

func (q *fakeQueue) Enqueue(a models.AlertPayload) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.got = append(q.got, a)
	return true
}

func (q *fakeQueue) alerts() []models.AlertPayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.AlertPayload(nil), q.got...)
}

type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) Notify() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type recordingIngestor struct {
	mu      sync.Mutex
	batches [][]float64
	err     error
}

func (r *recordingIngestor) IngestBatch(_ context.Context, values []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]float64(nil), values...))
	return r.err
}

func (r *recordingIngestor) got() [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]float64(nil), r.batches...)
}

type memCache struct {
	mu  sync.Mutex
	m   map[string][]byte
	ttl map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{m: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (c *memCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *memCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	c.ttl[key] = ttl
	return nil
}
