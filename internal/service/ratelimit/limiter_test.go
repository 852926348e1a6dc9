package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_FreshKeyStartsFull(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New().WithClock(func() time.Time { return now })

	assert.True(t, l.Allow("R_10", 2, 1))
	assert.True(t, l.Allow("R_10", 2, 1))
	assert.False(t, l.Allow("R_10", 2, 1))
}

func TestAllow_RefillsOverTime(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New().WithClock(func() time.Time { return now })

	assert.True(t, l.Allow("R_10", 1, 2))
	assert.False(t, l.Allow("R_10", 1, 2))

	now = now.Add(500 * time.Millisecond) // 2/sec refill restores one token
	assert.True(t, l.Allow("R_10", 1, 2))
}

func TestAllow_CapsAtCapacity(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New().WithClock(func() time.Time { return now })

	assert.True(t, l.Allow("R_10", 2, 1))
	now = now.Add(time.Hour) // long idle must not bank more than capacity
	assert.True(t, l.Allow("R_10", 2, 1))
	assert.True(t, l.Allow("R_10", 2, 1))
	assert.False(t, l.Allow("R_10", 2, 1))
}

func TestAllow_KeysIndependent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New().WithClock(func() time.Time { return now })

	assert.True(t, l.Allow("R_10", 1, 1))
	assert.False(t, l.Allow("R_10", 1, 1))
	assert.True(t, l.Allow("R_25", 1, 1))
}
