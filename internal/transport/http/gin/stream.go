package httpgin

import (
	"context"
	"sync"
)

// ChangeSubscriber delivers "event changed" notifications until ctx ends.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, eventID string)) error
}

// Hub fans out change notifications from one subscription to every open
// availability stream of the same event.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
	done     chan struct{}
	once     sync.Once
}

func NewHub() *Hub {
	return &Hub{
		watchers: map[string]map[chan struct{}]struct{}{},
		done:     make(chan struct{}),
	}
}

// Run subscribes to sub and blocks until ctx is done. Open streams end
// when Run returns, so a graceful shutdown does not wait on them.
func (h *Hub) Run(ctx context.Context, sub ChangeSubscriber) error {
	defer h.Close()

	return sub.Subscribe(ctx, func(_ context.Context, eventID string) {
		h.Notify(eventID)
	})
}

// Close ends every open stream.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

// Done is closed once the hub stops.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Notify wakes every watcher of eventID. A watcher that has not consumed
// the previous wake-up keeps just that one.
func (h *Hub) Notify(eventID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.watchers[eventID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch registers interest in eventID. The returned func unregisters.
func (h *Hub) Watch(eventID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	set, ok := h.watchers[eventID]
	if !ok {
		set = map[chan struct{}]struct{}{}
		h.watchers[eventID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		cur := h.watchers[eventID]
		delete(cur, ch)
		if len(cur) == 0 {
			delete(h.watchers, eventID)
		}
	}
}

func (h *Hub) watching(eventID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[eventID])
}
