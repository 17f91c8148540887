package bridge

import (
	"context"
	"sync"
)

// Event is an inbound message together with the origin it came from.
type Event struct {
	Origin string
	Data   Message
}

// Listener receives inbound events.
type Listener func(ctx context.Context, ev Event)

// ListenerID identifies an installed listener.
type ListenerID uint64

// Window is the host's message target. Frames dispatch inbound messages into
// it; the bridge installs at most one listener per live session.
type Window struct {
	origin string

	mu        sync.RWMutex
	next      ListenerID
	listeners map[ListenerID]Listener
}

// NewWindow creates a window whose own origin is origin.
func NewWindow(origin string) *Window {
	return &Window{origin: origin, listeners: make(map[ListenerID]Listener)}
}

// Origin returns the window's own origin.
func (w *Window) Origin() string {
	return w.origin
}

// AddListener installs a listener and returns its handle.
func (w *Window) AddListener(l Listener) ListenerID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next++
	w.listeners[w.next] = l
	return w.next
}

// RemoveListener uninstalls a listener. It reports whether one was removed.
func (w *Window) RemoveListener(id ListenerID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.listeners[id]; !ok {
		return false
	}
	delete(w.listeners, id)
	return true
}

// ListenerCount returns the number of installed listeners.
func (w *Window) ListenerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.listeners)
}

// Dispatch delivers ev to every installed listener on the caller's goroutine.
func (w *Window) Dispatch(ctx context.Context, ev Event) {
	w.mu.RLock()
	listeners := make([]Listener, 0, len(w.listeners))
	for _, l := range w.listeners {
		listeners = append(listeners, l)
	}
	w.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, ev)
	}
}
