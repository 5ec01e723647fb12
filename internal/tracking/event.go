package tracking

import (
	"time"

	"github.com/google/uuid"
)

// Well-known event names emitted by the coordinator.
const (
	EventSessionStarted      = "session_started"
	EventScreenViewed        = "screen_viewed"
	EventOnboardingCompleted = "onboarding_completed"
	EventSessionAbandoned    = "session_abandoned"
)

// Event is one analytics record bound for the tracking endpoint. Delivery is
// best-effort; nothing in the session flow depends on it.
type Event struct {
	AppID      string         `json:"appId"`
	AppUserID  string         `json:"appUserId"`
	EventID    string         `json:"eventId"`
	EventName  string         `json:"eventName"`
	SessionID  string         `json:"sessionId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Device     map[string]any `json:"device,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(appID, appUserID, name string) Event {
	return Event{
		AppID:      appID,
		AppUserID:  appUserID,
		EventID:    uuid.New().String(),
		EventName:  name,
		OccurredAt: time.Now().UTC(),
	}
}
