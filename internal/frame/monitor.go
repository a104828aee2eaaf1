package frame

import (
	"sync"
	"time"
)

// Stats summarises the frames rendered so far.
type Stats struct {
	Frames        int64
	AverageRender time.Duration
	MaxRender     time.Duration
	LastRender    time.Duration
	LastHits      int
	LastFPS       int
	FixedTick     int64
}

// AverageFPS derives the frame rate the renderer could sustain without pacing.
func (s Stats) AverageFPS() float64 {
	if s.AverageRender <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.AverageRender)
}

// Monitor accumulates render timings. It is written by the render loop and read
// by spectator endpoints, so access is synchronised.
type Monitor struct {
	mu    sync.Mutex
	stats Stats
	total time.Duration
}

// NewMonitor constructs an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Observe records a completed frame and its render time.
func (m *Monitor) Observe(f Frame, render time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	//1.- Keep the running total for the average.
	m.stats.Frames++
	m.total += max(render, 0)
	m.stats.AverageRender = m.total / time.Duration(m.stats.Frames)
	//2.- Track the slowest frame so spikes stay visible.
	if render > m.stats.MaxRender {
		m.stats.MaxRender = render
	}
	m.stats.LastRender = render
	m.stats.LastHits = f.Hits()
	m.stats.LastFPS = f.FPS
	m.stats.FixedTick = f.FixedTick
}

// Snapshot returns a copy of the aggregated statistics.
func (m *Monitor) Snapshot() Stats {
	if m == nil {
		return Stats{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
