// Package protocol parses inbound surface messages into a closed set of
// typed variants. Two wire formats feed the same variant type: a structured
// JSON envelope and a legacy bare-string protocol. Both are supported for the
// lifetime of the system, and the session state machine never sees the wire
// format.
//
// Parsing fails closed: anything unrecognized or malformed becomes Ignored,
// never an error reaching the dispatcher. Unknown messages are an expected
// race condition, not a fault.
package protocol

// Message is the tagged variant for every recognized inbound surface message.
type Message interface {
	messageType() string
}

// VariablesUpdate carries a surface's proposed writes to the shared
// variable map.
type VariablesUpdate struct {
	Vars map[string]any
}

// RequestVars asks the coordinator to re-send the full variable map to the
// requesting surface.
type RequestVars struct{}

// RequestReview asks the host to show the system review prompt. Gated: only
// runs while the requesting surface is active.
type RequestReview struct{}

// RequestNotificationPermission asks the host to show the push-permission
// prompt. Gated like RequestReview.
type RequestNotificationPermission struct {
	IOS     map[string]any
	Android map[string]any
}

// OnboardingFinished marks the flow complete.
type OnboardingFinished struct {
	Payload map[string]any
}

// ShowPaywall asks the host to present the paywall.
type ShowPaywall struct {
	Payload map[string]any
}

// Continue advances to the next screen.
type Continue struct {
	Animation string
}

// Navigate jumps to a named screen. TargetScreenID may carry the symbolic
// sentinels SentinelContinue or SentinelGoBack.
type Navigate struct {
	TargetScreenID string
	Animation      string
}

// GoBack returns to the previous screen.
type GoBack struct {
	Animation string
}

// Close dismisses the flow.
type Close struct{}

// Haptic forwards a haptic feedback request to the host.
type Haptic struct {
	HapticType       string
	ImpactStyle      string
	NotificationType string
}

// Ignored is the fail-closed variant for unrecognized or malformed input.
// Raw keeps a truncated copy of the input for debug logging.
type Ignored struct {
	Raw string
}

// Navigate sentinels accepted in Navigate.TargetScreenID.
const (
	SentinelContinue = "__continue__"
	SentinelGoBack   = "__goBack__"
)

func (VariablesUpdate) messageType() string               { return "variables" }
func (RequestVars) messageType() string                   { return "request-vars" }
func (RequestReview) messageType() string                 { return "request-review" }
func (RequestNotificationPermission) messageType() string { return "request-notification-permission" }
func (OnboardingFinished) messageType() string            { return "onboarding-finished" }
func (ShowPaywall) messageType() string                   { return "show-paywall" }
func (Continue) messageType() string                      { return "continue" }
func (Navigate) messageType() string                      { return "navigate" }
func (GoBack) messageType() string                        { return "goBack" }
func (Close) messageType() string                         { return "close" }
func (Haptic) messageType() string                        { return "haptic" }
func (Ignored) messageType() string                       { return "ignored" }

// TypeName reports the variant name of a message, for metrics labels.
func TypeName(m Message) string {
	if m == nil {
		return "ignored"
	}
	return m.messageType()
}
