package volatility

import (
	"sync"
	"testing"
	"time"

	"VolPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)}
}

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

func pattern(pt models.PatternType) models.ClassifiedPattern {
	return models.ClassifiedPattern{Type: pt, Confidence: 80, Description: string(pt)}
}

func TestTrackerCollapsesRepeatedPattern(t *testing.T) {
	clock := newFakeClock()
	tr := NewHistoryTracker(WithClock(clock))

	for i := 0; i < 5; i++ {
		tr.Record(pattern(models.PatternSurge), true, []float64{1, 2, 3})
		clock.Advance(10 * time.Second)
	}

	h := tr.History()
	require.Len(t, h, 1)
	assert.Equal(t, models.PatternSurge, h[0].Pattern.Type)
}

func TestTrackerRecordsAlternatingPatterns(t *testing.T) {
	clock := newFakeClock()
	tr := NewHistoryTracker(WithClock(clock))

	assert.True(t, tr.Record(pattern(models.PatternSurge), true, nil))
	clock.Advance(time.Second)
	assert.True(t, tr.Record(pattern(models.PatternCrash), true, nil))
	clock.Advance(time.Second)
	assert.True(t, tr.Record(pattern(models.PatternSurge), true, nil))

	h := tr.History()
	require.Len(t, h, 3)
	assert.Equal(t, models.PatternSurge, h[0].Pattern.Type)
	assert.Equal(t, models.PatternCrash, h[1].Pattern.Type)
	assert.Equal(t, models.PatternSurge, h[2].Pattern.Type)
	assert.True(t, h[0].Timestamp.Before(h[2].Timestamp))
}

func TestTrackerNoneClearsCurrentOnly(t *testing.T) {
	tr := NewHistoryTracker(WithClock(newFakeClock()))
	tr.Record(pattern(models.PatternSteady), true, nil)

	assert.False(t, tr.Record(models.ClassifiedPattern{}, false, nil))

	_, ok := tr.Current()
	assert.False(t, ok)
	assert.Len(t, tr.History(), 1)
}

func TestTrackerCurrentAlwaysReflectsLatest(t *testing.T) {
	tr := NewHistoryTracker(WithClock(newFakeClock()))
	first := pattern(models.PatternSurge)
	second := first
	second.Confidence = 93

	tr.Record(first, true, nil)
	tr.Record(second, true, nil)

	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, 93.0, cur.Confidence)
	require.Len(t, tr.History(), 1)
	assert.Equal(t, 80.0, tr.History()[0].Pattern.Confidence)
}

func TestTrackerExpiresOldEntries(t *testing.T) {
	clock := newFakeClock()
	tr := NewHistoryTracker(WithClock(clock))

	tr.Record(pattern(models.PatternSurge), true, nil)
	clock.Advance(time.Minute)
	tr.Record(pattern(models.PatternCrash), true, nil)
	clock.Advance(4*time.Minute + time.Second)

	// a none result does not purge
	tr.Record(models.ClassifiedPattern{}, false, nil)
	require.Len(t, tr.History(), 2)

	tr.Record(pattern(models.PatternSteady), true, nil)
	h := tr.History()
	require.Len(t, h, 2)
	assert.Equal(t, models.PatternCrash, h[0].Pattern.Type)
	assert.Equal(t, models.PatternSteady, h[1].Pattern.Type)
}

func TestTrackerSamePatternAfterExpiryIsNewEntry(t *testing.T) {
	clock := newFakeClock()
	tr := NewHistoryTracker(WithClock(clock))

	tr.Record(pattern(models.PatternSurge), true, nil)
	clock.Advance(6 * time.Minute)
	assert.True(t, tr.Record(pattern(models.PatternSurge), true, nil))

	h := tr.History()
	require.Len(t, h, 1)
	assert.Equal(t, clock.Now(), h[0].Timestamp)
}

func TestTrackerCustomRetention(t *testing.T) {
	clock := newFakeClock()
	tr := NewHistoryTracker(WithClock(clock), WithRetention(time.Minute))

	tr.Record(pattern(models.PatternSurge), true, nil)
	clock.Advance(61 * time.Second)
	tr.Record(pattern(models.PatternCrash), true, nil)

	require.Len(t, tr.History(), 1)
}

func TestTrackerSnapshotsWindow(t *testing.T) {
	tr := NewHistoryTracker(WithClock(newFakeClock()))
	w := []float64{1, 2, 3}
	tr.Record(pattern(models.PatternSurge), true, w)
	w[0] = 99

	h := tr.History()
	require.Len(t, h, 1)
	assert.Equal(t, []float64{1, 2, 3}, h[0].Window)

	h[0].Window[1] = 42
	assert.Equal(t, []float64{1, 2, 3}, tr.History()[0].Window)
}

func TestTrackerTransitionHook(t *testing.T) {
	var got []models.PatternType
	tr := NewHistoryTracker(
		WithClock(newFakeClock()),
		WithTransitionHook(func(e models.HistoryEntry) { got = append(got, e.Pattern.Type) }),
	)

	tr.Record(pattern(models.PatternSurge), true, nil)
	tr.Record(pattern(models.PatternSurge), true, nil)
	tr.Record(pattern(models.PatternCrash), true, nil)

	assert.Equal(t, []models.PatternType{models.PatternSurge, models.PatternCrash}, got)
}

func TestTrackerSnapshot(t *testing.T) {
	clock := newFakeClock()
	tr := NewHistoryTracker(WithClock(clock))

	snap := tr.Snapshot()
	assert.Nil(t, snap.Current)
	assert.Empty(t, snap.History)

	tr.Record(pattern(models.PatternSurge), true, []float64{1})
	snap = tr.Snapshot()
	require.NotNil(t, snap.Current)
	assert.Equal(t, models.PatternSurge, snap.Current.Type)
	assert.Len(t, snap.History, 1)
	assert.Equal(t, clock.Now(), snap.UpdatedAt)
}

func TestTrackerConcurrentReaders(t *testing.T) {
	tr := NewHistoryTracker()
	types := []models.PatternType{models.PatternSurge, models.PatternCrash}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					for _, e := range tr.History() {
						assert.Len(t, e.Window, 3)
					}
					tr.Current()
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		tr.Record(pattern(types[i%2]), true, []float64{1, 2, 3})
	}
	close(stop)
	wg.Wait()
	assert.Len(t, tr.History(), 500)
}
