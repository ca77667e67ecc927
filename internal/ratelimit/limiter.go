// Package ratelimit implements the fixed-window rate limiter of
// spec.md §4.1: one (window_start, count) pair per origin key, with a
// quota Q per window of length W.
package ratelimit

import (
	"sync"
	"time"

	"github.com/lee-jian-hui/tts-system/internal/metrics"
)

// Decision is the result of Admit.
type Decision struct {
	Allowed     bool
	RetryAfterS float64
}

// clock abstracts time.Now for deterministic tests.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type bucket struct {
	windowStart time.Time
	count       int
}

// Limiter is a fixed-window counter keyed by origin identity.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	quota   int
	buckets map[string]*bucket
	clock   clock
}

// Option configures a Limiter at construction.
type Option func(*Limiter)

// WithClock overrides the time source; used in tests.
func WithClock(c clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// New builds a limiter with window length W and per-window quota Q.
func New(window time.Duration, quota int, opts ...Option) *Limiter {
	l := &Limiter{
		window:  window,
		quota:   quota,
		buckets: make(map[string]*bucket),
		clock:   realClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit linearizes admission for key against its current window.
func (l *Limiter) Admit(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.windowStart.Add(l.window)) {
		b = &bucket{windowStart: now, count: 0}
		l.buckets[key] = b
	}

	if b.count < l.quota {
		b.count++
		l.publish()
		return Decision{Allowed: true}
	}

	retryAfter := b.windowStart.Add(l.window).Sub(now).Seconds()
	if retryAfter < 0 {
		retryAfter = 0
	}
	metrics.RecordRateLimitRejected(key)
	l.publish()
	return Decision{Allowed: false, RetryAfterS: retryAfter}
}

// publish refreshes the per-key usage and window-remaining gauges for
// every active key, opportunistically evicting entries whose window has
// expired (Admit treats an expired entry exactly like a missing one) so
// memory stays bounded by active keys (spec.md §4.1). The max-usage and
// min-remaining aggregates are served by MaxBucketUsage and
// MinWindowRemaining; publish does not export them as gauges.
// Must be called with mu held.
func (l *Limiter) publish() {
	now := l.clock.Now()
	maxUsage := 0.0
	minRemaining := -1.0

	for key, b := range l.buckets {
		expired := !now.Before(b.windowStart.Add(l.window))
		if expired {
			delete(l.buckets, key)
			continue
		}
		usage := float64(b.count) / float64(l.quota)
		if usage > maxUsage {
			maxUsage = usage
		}
		remaining := b.windowStart.Add(l.window).Sub(now).Seconds()
		if remaining < 0 {
			remaining = 0
		}
		if minRemaining < 0 || remaining < minRemaining {
			minRemaining = remaining
		}
		metrics.SetRateLimitUsage(key, b.count, remaining)
	}
}

// MaxBucketUsage returns the max fraction-of-quota in use across active
// keys, in [0,1].
func (l *Limiter) MaxBucketUsage() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	max := 0.0
	now := l.clock.Now()
	for _, b := range l.buckets {
		if !now.Before(b.windowStart.Add(l.window)) {
			continue
		}
		usage := float64(b.count) / float64(l.quota)
		if usage > max {
			max = usage
		}
	}
	return max
}

// MinWindowRemaining returns the smallest window-remaining seconds over
// active keys, or 0 if there are none.
func (l *Limiter) MinWindowRemaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	min := -1.0
	for _, b := range l.buckets {
		remaining := b.windowStart.Add(l.window).Sub(now).Seconds()
		if remaining <= 0 {
			continue
		}
		if min < 0 || remaining < min {
			min = remaining
		}
	}
	if min < 0 {
		return 0
	}
	return min
}
