package httpapi

import (
	"sync"
	"time"
)

// SlidingWindowLimiter enforces a maximum number of events within a time window.
type SlidingWindowLimiter struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu     sync.Mutex
	events []time.Time
}

// NewSlidingWindowLimiter constructs a limiter allowing up to limit events per window.
func NewSlidingWindowLimiter(window time.Duration, limit int, timeSource func() time.Time) *SlidingWindowLimiter {
	if timeSource == nil {
		timeSource = time.Now
	}
	return &SlidingWindowLimiter{window: window, limit: limit, now: timeSource}
}

// Allow reports whether the caller may proceed under the current rate limits.
func (l *SlidingWindowLimiter) Allow() bool {
	if l.disabled() {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.expire(now)
	if len(l.events) >= l.limit {
		return false
	}
	l.events = append(l.events, now)
	return true
}

// idle reports whether every recorded event has left the window.
func (l *SlidingWindowLimiter) idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expire(l.now())
	return len(l.events) == 0
}

func (l *SlidingWindowLimiter) disabled() bool {
	return l == nil || l.limit <= 0 || l.window <= 0
}

func (l *SlidingWindowLimiter) expire(now time.Time) {
	cutoff := now.Add(-l.window)
	kept := l.events[:0]
	for _, ts := range l.events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.events = kept
}

// KeyedLimiter applies an independent sliding window to every key, typically
// the remote host of a spectator connection.
type KeyedLimiter struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu      sync.Mutex
	keys    map[string]*SlidingWindowLimiter
	allowed int
}

// NewKeyedLimiter constructs a limiter allowing limit events per window for each key.
func NewKeyedLimiter(window time.Duration, limit int, timeSource func() time.Time) *KeyedLimiter {
	if timeSource == nil {
		timeSource = time.Now
	}
	return &KeyedLimiter{window: window, limit: limit, now: timeSource, keys: make(map[string]*SlidingWindowLimiter)}
}

// Allow reports whether key may proceed.
func (k *KeyedLimiter) Allow(key string) bool {
	if k == nil || k.limit <= 0 || k.window <= 0 {
		return true
	}
	k.mu.Lock()
	limiter, ok := k.keys[key]
	if !ok {
		limiter = NewSlidingWindowLimiter(k.window, k.limit, k.now)
		k.keys[key] = limiter
	}
	//1.- Sweep idle keys every so often so one-off callers do not pile up.
	k.allowed++
	if k.allowed%256 == 0 {
		for other, l := range k.keys {
			if other != key && l.idle() {
				delete(k.keys, other)
			}
		}
	}
	k.mu.Unlock()
	return limiter.Allow()
}

// Keys returns the number of keys currently tracked.
func (k *KeyedLimiter) Keys() int {
	if k == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.keys)
}
