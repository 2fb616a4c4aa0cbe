// Package ratelimit provides the per action, per user cooldowns used to throttle commands.
//
// State is held in memory only and is lost when the process restarts.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ActionOpen is the bucket for opening tickets.
	ActionOpen = "open"

	// ActionClaim is the bucket for claiming tickets.
	ActionClaim = "claim"

	// ActionUnclaim is the bucket for unclaiming tickets.
	ActionUnclaim = "unclaim"

	// ActionClose is the bucket for closing tickets.
	ActionClose = "close"
)

// Default cooldowns per action.
const (
	OpenCooldown  = 10 * time.Second
	ClaimCooldown = 2 * time.Second
	CloseCooldown = 3 * time.Second
)

// sweepInterval is the minimum time between sweeps of idle buckets.
const sweepInterval = time.Minute

type bucketKey struct {
	action string
	actor  string
}

// Limiter is a cooldown gate keyed by action and actor.
type Limiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*rate.Limiter
	now     func() time.Time

	// lastSweep is when idle buckets were last dropped.
	lastSweep time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the clock used by the limiter.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a new Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		buckets: make(map[bucketKey]*rate.Limiter),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check reports whether the actor may perform the action. An accepted call starts a new cooldown,
// a rejected call does not.
func (l *Limiter) Check(actorID, action string, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	k := bucketKey{action: action, actor: actorID}
	limit := rate.Every(cooldown)

	now := l.now()
	b, ok := l.buckets[k]
	if !ok || b.Limit() != limit {
		l.sweep(now)
		b = rate.NewLimiter(limit, 1)
		l.buckets[k] = b
	}
	return b.AllowN(now, 1)
}

// sweep drops the buckets whose cooldown has passed. A full bucket acts the same as a new one, so
// dropping it changes nothing for the actor. Must be called with mu held.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now

	for k, b := range l.buckets {
		if b.TokensAt(now) >= float64(b.Burst()) {
			delete(l.buckets, k)
		}
	}
}

// Reset drops every bucket.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[bucketKey]*rate.Limiter)
}
