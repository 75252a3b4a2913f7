package store

import (
	"context"
	"sync"
)

// Broadcaster carries "something under this path changed" signals between
// writers and subscriptions.
type Broadcaster interface {
	Publish(ctx context.Context, path string) error
	// Listen returns a channel that receives a signal per change and a func that detaches it.
	Listen(ctx context.Context, path string) (<-chan struct{}, func(), error)
	Close() error
}

// LocalHub is an in-process Broadcaster.
type LocalHub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[string]map[int]chan struct{}
}

// NewLocalHub creates an empty LocalHub.
func NewLocalHub() *LocalHub {
	return &LocalHub{listeners: make(map[string]map[int]chan struct{})}
}

// Publish signals every listener on path. Pending signals coalesce.
func (h *LocalHub) Publish(_ context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.listeners[path] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Listen registers a listener on path.
func (h *LocalHub) Listen(_ context.Context, path string) (<-chan struct{}, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan struct{}, 1)
	if h.listeners[path] == nil {
		h.listeners[path] = make(map[int]chan struct{})
	}
	h.listeners[path][id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners[path], id)
			if len(h.listeners[path]) == 0 {
				delete(h.listeners, path)
			}
			close(ch)
		})
	}
	return ch, stop, nil
}

// Close is a no-op for the in-process hub.
func (h *LocalHub) Close() error { return nil }

// publishChanges signals every ancestor collection of the changed paths once.
func publishChanges(ctx context.Context, hub Broadcaster, changed ...string) error {
	seen := make(map[string]struct{})
	for _, p := range changed {
		for _, a := range ancestors(p) {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			if err := hub.Publish(ctx, a); err != nil {
				return err
			}
		}
	}
	return nil
}
