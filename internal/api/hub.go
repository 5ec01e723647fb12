package api

import (
	"sync"

	"github.com/rampkit/rampkit-go/internal/session"
)

type eventCh = chan session.OutboundEvent

// surfaceHub fans one surface's outbound events out to its SSE subscribers.
// It implements session.SurfaceSink, so the session pushes into the hub and
// never knows about transport. Slow subscribers are skipped, not waited on:
// every event carries the full current state, so a missed one is recovered
// by the next.
type surfaceHub struct {
	mu   sync.Mutex
	subs map[eventCh]struct{}
	last *session.OutboundEvent
}

func newSurfaceHub() *surfaceHub {
	return &surfaceHub{subs: make(map[eventCh]struct{})}
}

// Send publishes an event to all subscribers (non-blocking).
func (h *surfaceHub) Send(ev session.OutboundEvent) {
	h.mu.Lock()
	h.last = &ev
	for ch := range h.subs {
		select {
		case ch <- ev:
		default: // if client is slow, skip instead of blocking
		}
	}
	h.mu.Unlock()
}

// Subscribe registers a listener and returns its channel, the most recent
// event for replay, and an unsubscribe func.
func (h *surfaceHub) Subscribe() (eventCh, *session.OutboundEvent, func()) {
	ch := make(eventCh, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	last := h.last
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}
	return ch, last, unsub
}
