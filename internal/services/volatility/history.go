package volatility

import (
	"sync"
	"time"

	"VolPulse/internal/domain/models"
	domsvc "VolPulse/internal/domain/service"
)

// DefaultRetention is how long a history entry stays visible.
const DefaultRetention = 5 * time.Minute

// Clock supplies the current time; tests substitute a fixed one.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// TransitionHook is called after a new history entry is appended.
type TransitionHook func(models.HistoryEntry)

type TrackerOption func(*HistoryTracker)

// WithClock sets the time source used for timestamps and expiry.
func WithClock(c Clock) TrackerOption {
	return func(t *HistoryTracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithRetention sets the history horizon.
func WithRetention(d time.Duration) TrackerOption {
	return func(t *HistoryTracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

// WithTransitionHook registers a hook fired for every appended entry.
func WithTransitionHook(h TransitionHook) TrackerOption {
	return func(t *HistoryTracker) {
		if h != nil {
			t.hooks = append(t.hooks, h)
		}
	}
}

// HistoryTracker keeps the latest classification and a de-duplicated,
// time-bounded list of pattern transitions. One writer, many readers.
type HistoryTracker struct {
	mu        sync.RWMutex
	clock     Clock
	retention time.Duration
	current   *models.ClassifiedPattern
	history   []models.HistoryEntry
	updatedAt time.Time
	hooks     []TransitionHook
}

// NewHistoryTracker creates an empty tracker.
func NewHistoryTracker(opts ...TrackerOption) *HistoryTracker {
	t := &HistoryTracker{
		clock:     SystemClock,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record stores the latest classification. When ok is false the current
// pattern is cleared and history is left alone. Otherwise expired entries
// are purged and a new entry is appended unless the last one has the same type.
// It reports whether an entry was appended.
func (t *HistoryTracker) Record(p models.ClassifiedPattern, ok bool, window []float64) bool {
	now := t.clock.Now()

	t.mu.Lock()
	t.updatedAt = now
	if !ok {
		t.current = nil
		t.mu.Unlock()
		return false
	}
	cur := p
	t.current = &cur

	t.purgeLocked(now)
	if n := len(t.history); n > 0 && t.history[n-1].Pattern.Type == p.Type {
		t.mu.Unlock()
		return false
	}
	snap := make([]float64, len(window))
	copy(snap, window)
	entry := models.HistoryEntry{Timestamp: now, Pattern: p, Window: snap}
	t.history = append(t.history, entry)
	hooks := t.hooks
	t.mu.Unlock()

	for _, h := range hooks {
		h(entry.Clone())
	}
	return true
}

func (t *HistoryTracker) purgeLocked(now time.Time) {
	kept := t.history[:0]
	for _, e := range t.history {
		if now.Sub(e.Timestamp) <= t.retention {
			kept = append(kept, e)
		}
	}
	// drop references held by the tail of the reused backing array
	for i := len(kept); i < len(t.history); i++ {
		t.history[i] = models.HistoryEntry{}
	}
	t.history = kept
}

// Current returns the latest classification, if any.
func (t *HistoryTracker) Current() (models.ClassifiedPattern, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return models.ClassifiedPattern{}, false
	}
	return *t.current, true
}

// History returns a copy of the recorded entries, oldest first.
func (t *HistoryTracker) History() []models.HistoryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.HistoryEntry, len(t.history))
	for i, e := range t.history {
		out[i] = e.Clone()
	}
	return out
}

// Snapshot returns current pattern and history under a single read lock.
func (t *HistoryTracker) Snapshot() models.PatternSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := models.PatternSnapshot{
		History:   make([]models.HistoryEntry, len(t.history)),
		UpdatedAt: t.updatedAt,
	}
	if t.current != nil {
		cur := *t.current
		snap.Current = &cur
	}
	for i, e := range t.history {
		snap.History[i] = e.Clone()
	}
	return snap
}

var _ domsvc.PatternReader = (*HistoryTracker)(nil)
