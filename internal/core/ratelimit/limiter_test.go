package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_InvalidArgs(t *testing.T) {
	assert.Nil(t, New(0, 5, time.Minute))
	assert.Nil(t, New(1, 0, time.Minute))
	assert.Nil(t, New(-1, -1, time.Minute))
}

func TestKeyLimiter_NilAllowsEverything(t *testing.T) {
	var l *KeyLimiter
	assert.True(t, l.Allow("anyone", time.Now()))
	assert.Equal(t, 0, l.Len())
}

func TestKeyLimiter_BurstThenDeny(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Now()

	assert.True(t, l.Allow("u1", now))
	assert.True(t, l.Allow("u1", now))
	assert.False(t, l.Allow("u1", now))
}

func TestKeyLimiter_KeysAreIndependent(t *testing.T) {
	l := New(1, 1, time.Minute)
	now := time.Now()

	assert.True(t, l.Allow("u1", now))
	assert.False(t, l.Allow("u1", now))
	assert.True(t, l.Allow("u2", now))
}

func TestKeyLimiter_RefillsOverTime(t *testing.T) {
	l := New(1, 1, time.Minute)
	now := time.Now()

	assert.True(t, l.Allow("u1", now))
	assert.False(t, l.Allow("u1", now))
	assert.True(t, l.Allow("u1", now.Add(2*time.Second)))
}

func TestKeyLimiter_EmptyKeyNeverLimited(t *testing.T) {
	l := New(1, 1, time.Minute)
	now := time.Now()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("", now))
		assert.True(t, l.Allow("   ", now))
	}
	assert.Equal(t, 0, l.Len())
}

func TestKeyLimiter_EvictsIdleKeys(t *testing.T) {
	l := New(1000, 1000, time.Minute)
	start := time.Now()

	l.Allow("idle", start)
	assert.Equal(t, 1, l.Len())

	// Trigger an eviction sweep well past the idle TTL.
	later := start.Add(time.Hour)
	for i := 0; i < evictEvery; i++ {
		l.Allow("busy", later)
	}

	assert.Equal(t, 1, l.Len())
	assert.True(t, l.Allow("busy", later))
}
