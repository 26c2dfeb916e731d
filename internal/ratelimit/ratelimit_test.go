package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinWindow(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := New(2, time.Minute)
	l.now = func() time.Time { return clock }

	ok, remaining, _ := l.Allow("u1")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	clock = clock.Add(10 * time.Second)
	ok, remaining, _ = l.Allow("u1")
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)

	clock = clock.Add(10 * time.Second)
	ok, _, resetIn := l.Allow("u1")
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, resetIn)

	ok, _, _ = l.Allow("u2")
	assert.True(t, ok, "keys are independent")

	clock = clock.Add(41 * time.Second)
	ok, _, _ = l.Allow("u1")
	assert.True(t, ok, "oldest event expired")
}

func TestDisabledLimiter(t *testing.T) {
	l := New(0, time.Minute)
	for i := 0; i < 100; i++ {
		ok, _, _ := l.Allow("u")
		assert.True(t, ok)
	}
}

func TestCleanupDropsIdleKeys(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := New(5, time.Minute)
	l.now = func() time.Time { return clock }

	l.Allow("idle")
	clock = clock.Add(30 * time.Second)
	l.Allow("active")
	clock = clock.Add(45 * time.Second)
	l.Cleanup()

	assert.NotContains(t, l.store, "idle")
	assert.Contains(t, l.store, "active")
}
