package httpapi

import (
	"math"
	"sort"
	"sync"
	"time"
)

// SpectatorUsage reports the outbound budget of one attached spectator.
type SpectatorUsage struct {
	Spectator      string
	AvailableBytes float64
	BytesPerSecond float64
	FramesSent     int64
	FramesSkipped  int64
}

type spectatorBucket struct {
	tokens  float64
	last    time.Time
	opened  time.Time
	bytes   int64
	sent    int64
	skipped int64
}

// BandwidthBudget grants every spectator a token bucket refilled at a fixed
// byte rate. Frames that do not fit are skipped, never queued.
type BandwidthBudget struct {
	mu      sync.Mutex
	buckets map[string]*spectatorBucket
	rate    float64
	now     func() time.Time
}

// NewBandwidthBudget allows each spectator bytesPerSecond of frame payload.
// A non-positive rate disables the budget.
func NewBandwidthBudget(bytesPerSecond float64, clock func() time.Time) *BandwidthBudget {
	if bytesPerSecond <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &BandwidthBudget{buckets: make(map[string]*spectatorBucket), rate: bytesPerSecond, now: clock}
}

// Spend charges size bytes to spectator and reports whether the frame may be sent.
func (b *BandwidthBudget) Spend(spectator string, size int) bool {
	if b == nil || size <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	bucket := b.buckets[spectator]
	if bucket == nil {
		//1.- A new spectator starts with a full second of budget.
		bucket = &spectatorBucket{tokens: b.rate, last: now, opened: now}
		b.buckets[spectator] = bucket
	}
	b.refill(bucket, now)

	if float64(size) > bucket.tokens {
		bucket.skipped++
		return false
	}
	bucket.tokens -= float64(size)
	bucket.bytes += int64(size)
	bucket.sent++
	return true
}

// Release forgets a detached spectator.
func (b *BandwidthBudget) Release(spectator string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	delete(b.buckets, spectator)
	b.mu.Unlock()
}

// Usage returns one sample per attached spectator ordered by name.
func (b *BandwidthBudget) Usage() []SpectatorUsage {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	usage := make([]SpectatorUsage, 0, len(b.buckets))
	for spectator, bucket := range b.buckets {
		b.refill(bucket, now)
		rate := 0.0
		if observed := now.Sub(bucket.opened).Seconds(); observed > 0 {
			rate = float64(bucket.bytes) / observed
		}
		usage = append(usage, SpectatorUsage{
			Spectator:      spectator,
			AvailableBytes: math.Max(bucket.tokens, 0),
			BytesPerSecond: rate,
			FramesSent:     bucket.sent,
			FramesSkipped:  bucket.skipped,
		})
	}
	sort.Slice(usage, func(i, j int) bool { return usage[i].Spectator < usage[j].Spectator })
	return usage
}

// refill tops the bucket up for the time elapsed since its last update; callers hold the mutex.
func (b *BandwidthBudget) refill(bucket *spectatorBucket, now time.Time) {
	if !now.After(bucket.last) {
		return
	}
	bucket.tokens = math.Min(bucket.tokens+now.Sub(bucket.last).Seconds()*b.rate, b.rate)
	bucket.last = now
}
