// Package broadcast fans rendered frames out to spectators without ever
// blocking the render loop.
package broadcast

import (
	"context"
	"sync"

	"sdfterm/raymarch/internal/frame"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 8

// Stats reports the hub's delivery counters.
type Stats struct {
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
}

// Hub delivers every observed frame to all current subscribers. A subscriber
// whose queue is full misses that frame.
type Hub struct {
	mu          sync.Mutex
	buffer      int
	nextID      uint64
	subscribers map[uint64]chan frame.Frame
	latest      frame.Frame
	hasLatest   bool
	closed      bool
	stats       Stats
}

// NewHub constructs a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{buffer: buffer, subscribers: make(map[uint64]chan frame.Frame)}
}

// ObserveFrame publishes f to every subscriber.
func (h *Hub) ObserveFrame(f frame.Frame) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.latest, h.hasLatest = f, true
	h.stats.Published++
	for _, ch := range h.subscribers {
		select {
		case ch <- f:
			h.stats.Delivered++
		default:
			h.stats.Dropped++
		}
	}
}

// Subscribe registers a listener. The returned channel starts with the latest
// frame, if any, and is closed by the cancel func, by ctx or by Close.
func (h *Hub) Subscribe(ctx context.Context) (<-chan frame.Frame, func()) {
	ch := make(chan frame.Frame, h.buffer)

	//1.- Register under lock and prime the queue so late joiners see an image at once.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.nextID++
	id := h.nextID
	h.subscribers[id] = ch
	if h.hasLatest {
		ch <- h.latest
	}
	h.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		//2.- Unsubscribe and close exactly once, whoever gets there first.
		once.Do(func() {
			close(done)
			h.mu.Lock()
			if sub, ok := h.subscribers[id]; ok {
				delete(h.subscribers, id)
				close(sub)
			}
			h.mu.Unlock()
		})
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-done:
			}
		}()
	}
	return ch, cancel
}

// Latest returns the most recently published frame.
func (h *Hub) Latest() (frame.Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.hasLatest
}

// Stats returns a copy of the delivery counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	stats := h.stats
	stats.Subscribers = len(h.subscribers)
	return stats
}

// Close ends every subscription; later frames are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}

var _ frame.Observer = (*Hub)(nil)
