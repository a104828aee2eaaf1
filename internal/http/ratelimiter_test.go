package httpapi

import (
	"fmt"
	"testing"
	"time"
)

func TestSlidingWindowLimiter(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewSlidingWindowLimiter(time.Minute, 2, func() time.Time { return now })

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("expected first two calls to be allowed")
	}
	if limiter.Allow() {
		t.Fatal("expected third call to be denied")
	}

	now = now.Add(30 * time.Second)
	if limiter.Allow() {
		t.Fatal("expected call within window to still be denied")
	}

	now = now.Add(31 * time.Second)
	if !limiter.Allow() {
		t.Fatal("expected limiter to permit call after window passes")
	}
}

func TestSlidingWindowLimiterDisabled(t *testing.T) {
	if !NewSlidingWindowLimiter(0, 0, nil).Allow() {
		t.Fatal("limiter with zero configuration should allow")
	}
	var limiter *SlidingWindowLimiter
	if !limiter.Allow() {
		t.Fatal("nil limiter should allow")
	}
}

func TestKeyedLimiterIsolatesHosts(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewKeyedLimiter(time.Minute, 1, func() time.Time { return now })

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected first call from host A to be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected second call from host A to be denied")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("expected host B to have its own window")
	}
	if limiter.Keys() != 2 {
		t.Fatalf("expected 2 tracked hosts, got %d", limiter.Keys())
	}
}

func TestKeyedLimiterSweepsIdleHosts(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewKeyedLimiter(time.Second, 1, func() time.Time { return now })

	for i := 0; i < 255; i++ {
		limiter.Allow(fmt.Sprintf("host-%d", i))
	}
	now = now.Add(2 * time.Second)
	limiter.Allow("fresh")

	if got := limiter.Keys(); got != 1 {
		t.Fatalf("expected idle hosts to be swept, %d remain", got)
	}
}
