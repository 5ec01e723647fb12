package api

import (
	"context"

	"github.com/rampkit/rampkit-go/internal/completion"
	"github.com/rampkit/rampkit-go/internal/session"
	"github.com/rampkit/rampkit-go/internal/tracking"
	"github.com/rs/zerolog"
)

// coordinatorHost is the server-side session.Host. Native capabilities
// (review prompt, permission dialogs, haptics, paywall) live in the client
// app, so every host action becomes an event on the session's host stream
// for the app to execute; lifecycle notifications feed the completion guard
// and tracking egress.
type coordinatorHost struct {
	events    *surfaceHub
	guard     *completion.Guard
	tracker   *tracking.Dispatcher
	appID     string
	appUserID string
	sessionID string
	onClosed  func(completed bool)
	log       zerolog.Logger
}

func (h *coordinatorHost) ShowReview() {
	h.action("show-review", nil)
}

func (h *coordinatorHost) RequestNotificationPermission(ios, android map[string]any) {
	h.action("request-notification-permission", map[string]any{
		"ios":     ios,
		"android": android,
	})
}

func (h *coordinatorHost) PlayHaptic(hapticType, impactStyle, notificationType string) {
	h.action("haptic", map[string]any{
		"hapticType":       hapticType,
		"impactStyle":      impactStyle,
		"notificationType": notificationType,
	})
}

func (h *coordinatorHost) ShowPaywall(payload map[string]any) {
	h.action("show-paywall", map[string]any{"payload": payload})
	h.guard.FireOnce(context.Background(), completion.TriggerPaywallShown)
}

func (h *coordinatorHost) OnboardingFinished(payload map[string]any) {
	h.action("onboarding-finished", map[string]any{"payload": payload})
	h.guard.FireOnce(context.Background(), completion.TriggerFinished)
}

func (h *coordinatorHost) SessionAbandoned(reason string, lastScreenIndex int, lastScreenID string) {
	ev := tracking.NewEvent(h.appID, h.appUserID, tracking.EventSessionAbandoned)
	ev.SessionID = h.sessionID
	ev.Properties = map[string]any{
		"reason":          reason,
		"lastScreenIndex": lastScreenIndex,
		"lastScreenId":    lastScreenID,
	}
	h.tracker.Dispatch(ev)
	h.log.Info().Str("reason", reason).Str("screen", lastScreenID).Msg("session abandoned")
}

func (h *coordinatorHost) SessionClosed(completed bool) {
	if completed {
		h.guard.FireOnce(context.Background(), completion.TriggerClosed)
	}
	h.events.Send(session.OutboundEvent{
		Type: "closed",
		Data: map[string]any{"completed": completed},
	})
	if h.onClosed != nil {
		h.onClosed(completed)
	}
}

// action publishes a host action on the session event stream.
func (h *coordinatorHost) action(name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["action"] = name
	h.events.Send(session.OutboundEvent{Type: "action", Data: data})
}
