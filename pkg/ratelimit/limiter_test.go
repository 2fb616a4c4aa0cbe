package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter() (*Limiter, *fakeClock) {
	c := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(WithClock(c.Now)), c
}

func TestLimiter_Cooldown(t *testing.T) {
	l, c := newTestLimiter()

	require.True(t, l.Check("u1", ActionClaim, ClaimCooldown))
	require.False(t, l.Check("u1", ActionClaim, ClaimCooldown))

	c.Advance(time.Second)
	require.False(t, l.Check("u1", ActionClaim, ClaimCooldown))

	c.Advance(2 * time.Second)
	require.True(t, l.Check("u1", ActionClaim, ClaimCooldown))
	require.False(t, l.Check("u1", ActionClaim, ClaimCooldown))
}

func TestLimiter_RejectedCallsDoNotExtend(t *testing.T) {
	l, c := newTestLimiter()

	require.True(t, l.Check("u1", ActionOpen, OpenCooldown))
	for i := 0; i < 5; i++ {
		c.Advance(time.Second)
		require.False(t, l.Check("u1", ActionOpen, OpenCooldown))
	}

	// 11 seconds after the accepted call, regardless of the rejected ones in between.
	c.Advance(6 * time.Second)
	require.True(t, l.Check("u1", ActionOpen, OpenCooldown))
}

func TestLimiter_IndependentBuckets(t *testing.T) {
	l, _ := newTestLimiter()

	require.True(t, l.Check("u1", ActionClaim, ClaimCooldown))
	require.True(t, l.Check("u1", ActionUnclaim, ClaimCooldown))
	require.True(t, l.Check("u1", ActionClose, CloseCooldown))
	require.True(t, l.Check("u2", ActionClaim, ClaimCooldown))

	require.False(t, l.Check("u1", ActionClaim, ClaimCooldown))
	require.False(t, l.Check("u1", ActionClose, CloseCooldown))
	require.False(t, l.Check("u2", ActionClaim, ClaimCooldown))
}

func TestLimiter_NoCooldown(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		require.True(t, l.Check("u1", "free", 0))
	}
}

func TestLimiter_Reset(t *testing.T) {
	l, _ := newTestLimiter()

	require.True(t, l.Check("u1", ActionClaim, ClaimCooldown))
	require.False(t, l.Check("u1", ActionClaim, ClaimCooldown))

	l.Reset()
	require.True(t, l.Check("u1", ActionClaim, ClaimCooldown))
}

func TestLimiter_DropsIdleBuckets(t *testing.T) {
	l, c := newTestLimiter()

	require.True(t, l.Check("u1", ActionClaim, ClaimCooldown))
	require.True(t, l.Check("u2", ActionClaim, ClaimCooldown))
	require.True(t, l.Check("u3", ActionOpen, OpenCooldown))
	require.Len(t, l.buckets, 3)

	c.Advance(sweepInterval)

	// u3 is still cooling down when u4 arrives, the others are dropped.
	require.True(t, l.Check("u3", ActionOpen, OpenCooldown))
	require.True(t, l.Check("u4", ActionClaim, ClaimCooldown))
	require.Len(t, l.buckets, 2)
	require.False(t, l.Check("u3", ActionOpen, OpenCooldown))

	// A dropped bucket starts over with a fresh cooldown.
	require.True(t, l.Check("u1", ActionClaim, ClaimCooldown))
	require.False(t, l.Check("u1", ActionClaim, ClaimCooldown))
}
