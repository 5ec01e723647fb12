package session

// Host is the collaborator that owns everything outside the coordinator's
// trust boundary: system prompts, haptics, the paywall, and session lifecycle
// notifications. Implementations must not block; failures are theirs to log.
type Host interface {
	// ShowReview presents the system review prompt. Only invoked while the
	// requesting surface is active.
	ShowReview()

	// RequestNotificationPermission presents the push-permission prompt with
	// platform-specific options. Gated like ShowReview.
	RequestNotificationPermission(ios, android map[string]any)

	// PlayHaptic forwards a haptic feedback request.
	PlayHaptic(hapticType, impactStyle, notificationType string)

	// ShowPaywall presents the paywall with the surface-provided payload.
	ShowPaywall(payload map[string]any)

	// OnboardingFinished reports flow completion, before the session closes.
	OnboardingFinished(payload map[string]any)

	// SessionAbandoned reports an early close, before SessionClosed.
	SessionAbandoned(reason string, lastScreenIndex int, lastScreenID string)

	// SessionClosed is the terminal notification, delivered exactly once.
	SessionClosed(completed bool)
}

// NopHost ignores every notification. Useful in tests and as an embedding
// base for hosts that care about a subset.
type NopHost struct{}

func (NopHost) ShowReview()                                       {}
func (NopHost) RequestNotificationPermission(_, _ map[string]any) {}
func (NopHost) PlayHaptic(_, _, _ string)                         {}
func (NopHost) ShowPaywall(map[string]any)                        {}
func (NopHost) OnboardingFinished(map[string]any)                 {}
func (NopHost) SessionAbandoned(_ string, _ int, _ string)        {}
func (NopHost) SessionClosed(bool)                                {}
