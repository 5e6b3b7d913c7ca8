package publish

import "sync"

// Hub fans readings out to subscribers. Each subscriber holds at most one
// pending reading; a slow subscriber sees only the newest value.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Reading]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Reading]struct{})}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel.
func (h *Hub) Subscribe() (<-chan Reading, func()) {
	ch := make(chan Reading, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) Broadcast(r Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- r:
			continue
		default:
		}
		// Drop the stale value and retry; we hold the lock so nothing
		// else sends in between.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- r:
		default:
		}
	}
}
