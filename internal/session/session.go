// Package session owns the live onboarding session: the current-screen
// index, per-surface activation state, pending-action queues, the shared
// variable store, and the transition lifecycle. It is the orchestrator the
// message protocol dispatches into.
//
// The concurrency model is cooperative and event-driven: hazards come from
// the asynchrony of message arrival, not parallel mutation. A single mutex
// serializes dispatch, which is the Go rendition of the original
// single-threaded event loop; within one surface, messages are processed in
// arrival order, and no cross-surface ordering is assumed.
package session

import (
	"sync"
	"time"

	"github.com/rampkit/rampkit-go/internal/flow"
	"github.com/rampkit/rampkit-go/internal/navigation"
	"github.com/rampkit/rampkit-go/internal/protocol"
	"github.com/rs/zerolog"
)

// Config wires a new session.
type Config struct {
	ID         string
	Onboarding *flow.Onboarding
	Host       Host

	SettlingWindow time.Duration // 0 means DefaultSettlingWindow
	StaleWindow    time.Duration // 0 means DefaultStaleWindow

	// OnVarsChanged is called after any accepted variable merge with a copy
	// of the full map, for last-write-wins persistence. Optional.
	OnVarsChanged func(vars map[string]any)

	Logger zerolog.Logger
	Clock  func() time.Time // nil means time.Now
}

// Session is the live aggregate for one selected onboarding flow.
type Session struct {
	mu sync.Mutex

	id          string
	onboarding  *flow.Onboarding
	screens     []flow.Screen
	activeIndex int
	surfaces    []*SurfaceState
	nav         *navigation.Resolver
	vars        *VarStore
	host        Host

	transitioning bool
	completed     bool
	closing       bool

	onVarsChanged func(map[string]any)
	log           zerolog.Logger
	now           func() time.Time
}

// New creates a session for a selected flow. Surface 0 starts pre-activated;
// every other surface starts not-loaded and inactive.
func New(cfg Config) *Session {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	host := cfg.Host
	if host == nil {
		host = NopHost{}
	}

	s := &Session{
		id:            cfg.ID,
		onboarding:    cfg.Onboarding,
		screens:       cfg.Onboarding.Screens,
		nav:           navigation.NewResolver(cfg.Onboarding.Navigation),
		vars:          NewVarStore(cfg.Onboarding.Variables, cfg.SettlingWindow, cfg.StaleWindow),
		host:          host,
		onVarsChanged: cfg.OnVarsChanged,
		log:           cfg.Logger.With().Str("session", cfg.ID).Logger(),
		now:           now,
	}

	s.surfaces = make([]*SurfaceState, len(s.screens))
	for i := range s.surfaces {
		s.surfaces[i] = &SurfaceState{}
	}
	if len(s.surfaces) > 0 {
		s.surfaces[0].Active = true
		s.surfaces[0].ActivatedAt = now()
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ActiveIndex returns the current screen index.
func (s *Session) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIndex
}

// Closed reports whether the session reached its terminal state.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Completed reports whether the flow finished rather than being abandoned.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// ScreenCount returns the number of screens in the flow.
func (s *Session) ScreenCount() int { return len(s.screens) }

// Variables returns a copy of the current variable map.
func (s *Session) Variables() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vars.Values()
}

// AttachSurface binds a sink to the surface at index. Replacing a sink is
// allowed (a surface may reconnect its event stream).
func (s *Session) AttachSurface(index int, sink SurfaceSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.surfaces) {
		return
	}
	s.surfaces[index].sink = sink
}

// SurfaceLoaded records a surface's one-time load signal and pushes the
// current variable map so its in-memory copy starts authoritative.
func (s *Session) SurfaceLoaded(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.surfaces) || s.closing {
		return
	}
	st := s.surfaces[index]
	if st.Loaded {
		return // load signal fires once; duplicates are a protocol violation, ignored
	}
	st.Loaded = true
	s.sendVars(index)
	if index == s.activeIndex {
		s.sendProgress(index)
	}
}

// HandleMessage dispatches one inbound surface message. Unrecognized
// variants and messages for out-of-range surfaces are ignored silently:
// they are expected under normal race conditions, not errors.
func (s *Session) HandleMessage(index int, msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.surfaces) || s.closing {
		return
	}

	switch m := msg.(type) {
	case protocol.VariablesUpdate:
		s.applyVariables(index, m.Vars)
	case protocol.RequestVars:
		s.sendVars(index)
	case protocol.Continue:
		s.advance(1)
	case protocol.GoBack:
		s.advance(-1)
	case protocol.Navigate:
		s.navigateTo(m.TargetScreenID)
	case protocol.Close:
		s.requestClose(true)
	case protocol.RequestReview:
		s.gated(index, s.host.ShowReview)
	case protocol.RequestNotificationPermission:
		ios, android := m.IOS, m.Android
		s.gated(index, func() { s.host.RequestNotificationPermission(ios, android) })
	case protocol.OnboardingFinished:
		s.completed = true
		s.host.OnboardingFinished(m.Payload)
		s.requestClose(true)
	case protocol.ShowPaywall:
		s.host.ShowPaywall(m.Payload)
	case protocol.Haptic:
		s.host.PlayHaptic(m.HapticType, m.ImpactStyle, m.NotificationType)
	case protocol.Ignored:
		s.log.Debug().Str("raw", m.Raw).Int("surface", index).Msg("ignoring unrecognized surface message")
	}
}

// SetVariables is an external (host-authored) write, e.g. a permission
// result. Accepted keys are broadcast to every loaded surface.
func (s *Session) SetVariables(vars map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return
	}
	changed := false
	for k, v := range vars {
		if s.vars.Set(k, v) {
			changed = true
		}
	}
	if changed {
		s.broadcast(-1)
		s.notifyVarsChanged()
	}
}

// Navigate moves to the screen at target index. No-op when target equals the
// active index, is out of bounds, or a transition is already in flight;
// transitions are not reentrant or interruptible.
func (s *Session) Navigate(target int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigate(target)
}

// RequestClose closes the session. Idempotent: a second call while already
// closing is ignored, and the host is notified exactly once.
func (s *Session) RequestClose(completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestClose(completed)
}

// ---- internals (mu held) ----

func (s *Session) applyVariables(index int, vars map[string]any) {
	st := s.surfaces[index]
	changed, ok := s.vars.Apply(vars, WriteContext{
		FromActive:  index == s.activeIndex,
		ActivatedAt: st.ActivatedAt,
		LastSentAt:  st.LastVarsSentAt,
		Now:         s.now(),
	})
	if !ok {
		s.log.Debug().Int("surface", index).Msg("dropping variable write from inactive surface")
		return
	}
	if changed {
		// Re-send to the originating surface only, keeping its copy
		// authoritative; no broadcast.
		s.sendVars(index)
		s.notifyVarsChanged()
	}
}

func (s *Session) notifyVarsChanged() {
	if s.onVarsChanged != nil {
		s.onVarsChanged(s.vars.Values())
	}
}

// advance resolves a symbolic ±1 transition: navigation graph first, array
// order on fallback, close when the fallback lands out of bounds.
func (s *Session) advance(direction int) {
	fromID := s.screens[s.activeIndex].ID

	var resolved string
	var ok bool
	if direction > 0 {
		resolved, ok = s.nav.Continue(fromID)
	} else {
		resolved, ok = s.nav.GoBack(fromID)
	}
	if ok {
		if idx := s.onboarding.ScreenIndex(resolved); idx >= 0 {
			s.navigate(idx)
			return
		}
		s.log.Warn().Str("screen", resolved).Msg("navigation graph resolved to unknown screen, using array order")
	}

	target := s.activeIndex + direction
	if target < 0 || target >= len(s.screens) {
		// Walked off either end of the flow.
		s.requestClose(true)
		return
	}
	s.navigate(target)
}

func (s *Session) navigateTo(target string) {
	switch target {
	case protocol.SentinelContinue:
		s.advance(1)
	case protocol.SentinelGoBack:
		s.advance(-1)
	default:
		idx := s.onboarding.ScreenIndex(target)
		if idx < 0 {
			s.log.Debug().Str("screen", target).Msg("navigate to unknown screen ignored")
			return
		}
		s.navigate(idx)
	}
}

func (s *Session) navigate(target int) {
	if s.closing || s.transitioning {
		return
	}
	if target == s.activeIndex || target < 0 || target >= len(s.screens) {
		return
	}

	s.transitioning = true
	defer func() { s.transitioning = false }()

	outgoing := s.surfaces[s.activeIndex]
	incoming := s.surfaces[target]

	outgoing.Active = false
	incoming.Active = true
	incoming.ActivatedAt = s.now()
	s.activeIndex = target

	incoming.drain()

	// A surface becoming newly active triggers a full broadcast, which also
	// pushes the current map to the incoming surface itself.
	s.broadcast(-1)
	s.sendProgress(target)
}

func (s *Session) requestClose(completed bool) {
	if s.closing {
		s.log.Debug().Msg("close requested while already closing, ignoring")
		return
	}
	s.closing = true
	if completed {
		s.completed = true
	}

	if !completed && !s.completed {
		s.host.SessionAbandoned("closed_before_completion", s.activeIndex, s.screens[s.activeIndex].ID)
	}
	s.host.SessionClosed(s.completed)
}

// gated runs a host side-effect immediately when the requesting surface is
// active, and queues it otherwise so a backgrounded surface can never raise
// a system prompt.
func (s *Session) gated(index int, action Action) {
	if index == s.activeIndex {
		action()
		return
	}
	s.surfaces[index].enqueue(action)
}

func (s *Session) sendVars(index int) {
	st := s.surfaces[index]
	if st.send(variablesEvent(s.vars.Values())) {
		st.LastVarsSentAt = s.now()
	}
}

func (s *Session) sendProgress(index int) {
	s.surfaces[index].send(progressEvent(index, s.screens[index].ID, len(s.screens)))
}

// broadcast re-sends the full map to every loaded surface except
// excludeIndex (-1 excludes none), stamping each surface's last-sent time.
func (s *Session) broadcast(excludeIndex int) {
	for i, st := range s.surfaces {
		if i == excludeIndex || !st.Loaded {
			continue
		}
		s.sendVars(i)
	}
}
