package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterPerKey(t *testing.T) {
	l := New(1, 1)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.allowAt("AAPL", now))
	assert.False(t, l.allowAt("AAPL", now))
	assert.True(t, l.allowAt("MSFT", now), "keys have independent buckets")
	assert.True(t, l.allowAt("AAPL", now.Add(time.Second)))
	assert.Equal(t, 2, l.Len())
}

func TestLimiterBurst(t *testing.T) {
	l := New(1, 3)
	now := time.Unix(1_700_000_000, 0)
	for i := 0; i < 3; i++ {
		assert.True(t, l.allowAt("k", now))
	}
	assert.False(t, l.allowAt("k", now))
}

func TestLimiterDisabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k"))
	}
}

func TestLimiterEvictsIdleKeys(t *testing.T) {
	l := New(1, 1)
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 100; i++ {
		l.allowAt(fmt.Sprintf("10.0.0.%d", i), now)
	}
	assert.Equal(t, 100, l.Len())

	l.allowAt("10.0.0.1", now.Add(DefaultIdleTTL/2))
	later := now.Add(DefaultIdleTTL + time.Second)
	assert.True(t, l.allowAt("10.0.1.1", later))
	assert.Equal(t, 2, l.Len(), "only the recently used key and the new one remain")
}

func TestLimiterIdleCoversRefill(t *testing.T) {
	l := New(0.001, 1)
	assert.GreaterOrEqual(t, l.idle, 1000*time.Second)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.allowAt("k", now))
	l.allowAt("other", now.Add(DefaultIdleTTL+time.Second))
	assert.False(t, l.allowAt("k", now.Add(DefaultIdleTTL+time.Second)), "bucket kept until it would be full again")
}
