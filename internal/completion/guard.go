// Package completion enforces the at-most-once completion event. Several
// independent paths report completion (the surface's finished message, a
// close-as-completed, the paywall handoff); whichever fires first wins and
// the rest become no-ops, across restarts via the persisted flag.
package completion

import (
	"context"
	"sync"
	"time"

	"github.com/rampkit/rampkit-go/internal/tracking"
	"github.com/rs/zerolog"
)

// Triggers accepted by FireOnce.
const (
	TriggerFinished     = "finished"
	TriggerClosed       = "closed"
	TriggerPaywallShown = "paywall_shown"
)

// FlagStore is the slice of the persisted store the guard needs.
type FlagStore interface {
	CompletionFired(ctx context.Context, appUserID string) (bool, error)
	MarkCompletionFired(ctx context.Context, appUserID string) error
}

// Emitter receives the terminal tracking event.
type Emitter interface {
	Dispatch(event tracking.Event)
}

// Guard fires the completion event at most once per user. The persisted flag
// is set before the event is emitted, so a crash between the two loses the
// event rather than duplicating it.
type Guard struct {
	store     FlagStore
	emitter   Emitter
	appID     string
	appUserID string
	sessionID string
	startedAt time.Time
	log       zerolog.Logger

	mu    sync.Mutex
	fired bool
}

// NewGuard creates a guard for one session. startedAt anchors the elapsed
// duration reported on the terminal event.
func NewGuard(store FlagStore, emitter Emitter, appID, appUserID, sessionID string, startedAt time.Time, log zerolog.Logger) *Guard {
	return &Guard{
		store:     store,
		emitter:   emitter,
		appID:     appID,
		appUserID: appUserID,
		sessionID: sessionID,
		startedAt: startedAt,
		log:       log.With().Str("component", "completion").Str("session", sessionID).Logger(),
	}
}

// FireOnce emits the completion event unless it already fired, in this
// process or a previous one. A storage read failure counts as not-fired; a
// storage write failure suppresses the event, since an unmarked emit could
// repeat on the next session.
func (g *Guard) FireOnce(ctx context.Context, trigger string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fired {
		return
	}

	fired, err := g.store.CompletionFired(ctx, g.appUserID)
	if err != nil {
		g.log.Warn().Err(err).Msg("completion flag read failed, assuming not fired")
	} else if fired {
		g.fired = true
		return
	}

	if err := g.store.MarkCompletionFired(ctx, g.appUserID); err != nil {
		g.log.Error().Err(err).Str("trigger", trigger).Msg("completion flag write failed, suppressing event")
		return
	}
	g.fired = true

	ev := tracking.NewEvent(g.appID, g.appUserID, tracking.EventOnboardingCompleted)
	ev.SessionID = g.sessionID
	ev.Properties = map[string]any{
		"trigger":   trigger,
		"elapsedMs": time.Since(g.startedAt).Milliseconds(),
	}
	g.emitter.Dispatch(ev)
	g.log.Info().Str("trigger", trigger).Msg("completion event fired")
}
