// Package api exposes the coordinator over HTTP: session creation runs
// targeting and allocation, surfaces post their load signals and messages,
// and outbound pushes stream back over SSE.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rampkit/rampkit-go/internal/completion"
	"github.com/rampkit/rampkit-go/internal/flow"
	"github.com/rampkit/rampkit-go/internal/protocol"
	"github.com/rampkit/rampkit-go/internal/session"
	"github.com/rampkit/rampkit-go/internal/store"
	"github.com/rampkit/rampkit-go/internal/targeting"
	"github.com/rampkit/rampkit-go/internal/telemetry"
	"github.com/rampkit/rampkit-go/internal/tracking"
)

// maxMessageSize limits inbound surface message bodies (256KB).
const maxMessageSize = 256 << 10

// Options carries the server's tunables.
type Options struct {
	AppID          string
	SettlingWindow time.Duration
	StaleWindow    time.Duration
	RateLimitPerIP int // requests per minute per IP; 0 disables
}

type Server struct {
	targets  []targeting.Target
	engine   *targeting.Engine
	store    store.Store
	tracker  *tracking.Dispatcher
	registry *Registry
	opts     Options
	log      zerolog.Logger
}

// NewServer wires the coordinator's HTTP surface. The target list is the
// validated manifest content and is treated as immutable.
func NewServer(targets []targeting.Target, st store.Store, tracker *tracking.Dispatcher, opts Options, log zerolog.Logger) *Server {
	return &Server{
		targets:  targets,
		engine:   targeting.NewEngine(log),
		store:    st,
		tracker:  tracker,
		registry: NewRegistry(),
		opts:     opts,
		log:      log.With().Str("component", "api").Logger(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// SSE endpoints live outside the timeout group: streams are long-lived.
	r.Get("/v1/sessions/{sessionID}/events", s.handleSessionEvents)
	r.Get("/v1/sessions/{sessionID}/surfaces/{idx}/events", s.handleSurfaceEvents)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		if s.opts.RateLimitPerIP > 0 {
			r.Use(httprate.LimitByIP(s.opts.RateLimitPerIP, time.Minute))
		}

		r.Post("/v1/sessions", s.handleStartSession)
		r.Post("/v1/sessions/{sessionID}/surfaces/{idx}/loaded", s.handleSurfaceLoaded)
		r.Post("/v1/sessions/{sessionID}/surfaces/{idx}/messages", s.handleSurfaceMessage)
	})

	return r
}

// ---- handlers ----

type startSessionRequest struct {
	AppUserKey string            `json:"appUserKey"`
	Context    targeting.Context `json:"context"`
}

type startSessionResponse struct {
	SessionID    string         `json:"sessionId"`
	StableID     string         `json:"stableId"`
	TargetID     string         `json:"targetId"`
	TargetName   string         `json:"targetName,omitempty"`
	OnboardingID string         `json:"onboardingId"`
	Bucket       int            `json:"bucket"`
	Screens      []flow.Screen  `json:"screens"`
	Variables    map[string]any `json:"variables,omitempty"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if req.AppUserKey == "" {
		BadRequestError(w, r, ErrCodeValidation, "appUserKey is required")
		return
	}

	stableID, err := s.store.StableID(r.Context(), req.AppUserKey)
	if err != nil {
		s.log.Error().Err(err).Msg("stable id lookup failed")
		InternalError(w, r, "identity lookup failed")
		return
	}

	selection, err := s.engine.EvaluateTargets(s.targets, &req.Context, stableID)
	if err != nil {
		s.log.Error().Err(err).Msg("allocation failed")
		InternalError(w, r, "flow allocation failed")
		return
	}
	if selection == nil {
		writeErrorResponse(w, r, http.StatusServiceUnavailable,
			NewErrorResponse(http.StatusServiceUnavailable, ErrCodeNoTargets, "no targets configured"))
		return
	}

	ls := s.startSession(stableID, selection)

	telemetry.SessionsStarted.Inc()
	telemetry.ActiveSessions.Inc()

	ev := tracking.NewEvent(s.opts.AppID, stableID, tracking.EventSessionStarted)
	ev.SessionID = ls.sess.ID()
	ev.Device = req.Context.Device
	ev.Properties = map[string]any{
		"targetId":     selection.TargetID,
		"onboardingId": selection.Onboarding.ID,
		"bucket":       selection.Bucket,
	}
	s.tracker.Dispatch(ev)

	writeJSON(w, http.StatusCreated, startSessionResponse{
		SessionID:    ls.sess.ID(),
		StableID:     stableID,
		TargetID:     selection.TargetID,
		TargetName:   selection.TargetName,
		OnboardingID: selection.Onboarding.ID,
		Bucket:       selection.Bucket,
		Screens:      selection.Onboarding.Screens,
		Variables:    ls.sess.Variables(),
	})
}

// startSession builds the live session aggregate and registers it.
func (s *Server) startSession(stableID string, selection *targeting.Selection) *liveSession {
	sessionID := uuid.New().String()
	ob := selection.Onboarding

	hostHub := newSurfaceHub()
	guard := completion.NewGuard(s.store, s.tracker, s.opts.AppID, stableID, sessionID, time.Now(), s.log)
	host := &coordinatorHost{
		events:    hostHub,
		guard:     guard,
		tracker:   s.tracker,
		appID:     s.opts.AppID,
		appUserID: stableID,
		sessionID: sessionID,
		log:       s.log.With().Str("session", sessionID).Logger(),
	}
	host.onClosed = func(completed bool) {
		s.registry.Remove(sessionID)
		telemetry.ActiveSessions.Dec()
		if completed {
			telemetry.SessionsCompleted.Inc()
		}
	}

	sess := session.New(session.Config{
		ID:             sessionID,
		Onboarding:     s.seededFlow(stableID, ob),
		Host:           host,
		SettlingWindow: s.opts.SettlingWindow,
		StaleWindow:    s.opts.StaleWindow,
		OnVarsChanged: func(vars map[string]any) {
			if err := s.store.SaveVariables(context.Background(), stableID, vars); err != nil {
				s.log.Warn().Err(err).Str("session", sessionID).Msg("variable snapshot save failed")
			}
		},
		Logger: s.log,
	})

	hubs := make([]*surfaceHub, len(ob.Screens))
	for i := range hubs {
		hubs[i] = newSurfaceHub()
		sess.AttachSurface(i, hubs[i])
	}

	ls := &liveSession{
		sess:      sess,
		hubs:      hubs,
		host:      hostHub,
		guard:     guard,
		stableID:  stableID,
		selection: selection,
		startedAt: time.Now(),
	}
	s.registry.Add(sessionID, ls)
	return ls
}

// seededFlow overlays the user's persisted variable snapshot onto the flow's
// seed variables, so a returning user resumes with their prior answers.
func (s *Server) seededFlow(stableID string, ob *flow.Onboarding) *flow.Onboarding {
	saved, err := s.store.LoadVariables(context.Background(), stableID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Err(err).Msg("variable snapshot load failed, starting fresh")
		}
		return ob
	}

	seeded := *ob
	merged := make(map[string]any, len(ob.Variables)+len(saved))
	for k, v := range ob.Variables {
		merged[k] = v
	}
	for k, v := range saved {
		merged[k] = v
	}
	seeded.Variables = merged
	return &seeded
}

func (s *Server) handleSurfaceLoaded(w http.ResponseWriter, r *http.Request) {
	ls, idx, ok := s.surface(w, r)
	if !ok {
		return
	}
	ls.sess.SurfaceLoaded(idx)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSurfaceMessage(w http.ResponseWriter, r *http.Request) {
	ls, idx, ok := s.surface(w, r)
	if !ok {
		return
	}
	if ls.sess.Closed() {
		GoneError(w, r, "session already closed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		BadRequestError(w, r, ErrCodeBadRequest, "unreadable body")
		return
	}

	msg := protocol.Parse(body)
	telemetry.SurfaceMessages.WithLabelValues(protocol.TypeName(msg)).Inc()
	ls.sess.HandleMessage(idx, msg)

	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// ---- SSE ----

func (s *Server) handleSurfaceEvents(w http.ResponseWriter, r *http.Request) {
	ls, idx, ok := s.surface(w, r)
	if !ok {
		return
	}
	s.streamEvents(w, r, ls.hubs[idx])
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.streamEvents(w, r, ls.host)
}

// streamEvents pipes a hub's events to one SSE client until it disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, hub *surfaceHub) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		InternalError(w, r, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	telemetry.SSEClients.Inc()
	defer telemetry.SSEClients.Dec()

	events, last, unsub := hub.Subscribe()
	defer unsub()

	// Replay the most recent event so a reconnecting surface catches up
	// without waiting for the next push.
	if last != nil {
		writeSSE(w, *last)
	}
	flusher.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, ev session.OutboundEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
}

// ---- helpers ----

func decodeJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxMessageSize))
	return dec.Decode(v)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*liveSession, bool) {
	id := chi.URLParam(r, "sessionID")
	ls, ok := s.registry.Get(id)
	if !ok {
		NotFoundError(w, r, "unknown session")
		return nil, false
	}
	return ls, true
}

func (s *Server) surface(w http.ResponseWriter, r *http.Request) (*liveSession, int, bool) {
	ls, ok := s.lookup(w, r)
	if !ok {
		return nil, 0, false
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil || idx < 0 || idx >= ls.sess.ScreenCount() {
		BadRequestError(w, r, ErrCodeValidation, "surface index out of range")
		return nil, 0, false
	}
	return ls, idx, true
}
