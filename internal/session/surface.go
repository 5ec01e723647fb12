package session

import "time"

// Action is a deferred host side-effect queued for a surface that is not
// currently active.
type Action func()

// SurfaceState tracks one content surface, indexed by ordinal screen position
// (not screen id). Surfaces load independently and out of order relative to
// navigation, so all per-surface bookkeeping lives here as first-class,
// inspectable state.
type SurfaceState struct {
	Loaded         bool
	Active         bool
	LastVarsSentAt time.Time
	ActivatedAt    time.Time

	pending []Action
	sink    SurfaceSink
}

// SurfaceSink receives outbound payloads for one surface. Sends are
// fire-and-forget: the coordinator never awaits acknowledgment and tolerates
// a surface that never responds.
type SurfaceSink interface {
	Send(ev OutboundEvent)
}

// OutboundEvent is one coordinator-to-surface payload. Script is the snippet
// a webview host injects; Data is the same payload in structured form for
// transports that deliver JSON instead of evaluating script.
type OutboundEvent struct {
	Type   string         `json:"type"` // "variables", "progress", "action", "closed"
	Script string         `json:"script,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// enqueue appends a gated action in arrival order.
func (s *SurfaceState) enqueue(a Action) {
	s.pending = append(s.pending, a)
}

// drain runs all pending actions FIFO and clears the queue. Actions are not
// retried or re-ordered.
func (s *SurfaceState) drain() {
	queued := s.pending
	s.pending = nil
	for _, a := range queued {
		a()
	}
}

// send forwards an event to the surface's sink, if one is attached. A dead
// or never-attached surface silently drops.
func (s *SurfaceState) send(ev OutboundEvent) bool {
	if s.sink == nil {
		return false
	}
	s.sink.Send(ev)
	return true
}
