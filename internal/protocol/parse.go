package protocol

import (
	"encoding/json"
	"strings"
)

// envelope is the structured JSON wire shape. One DTO covers every message
// type; Type decides which fields are meaningful.
type envelope struct {
	Type             string         `json:"type"`
	Vars             map[string]any `json:"vars,omitempty"`
	Payload          map[string]any `json:"payload,omitempty"`
	IOS              map[string]any `json:"ios,omitempty"`
	Android          map[string]any `json:"android,omitempty"`
	TargetScreenID   string         `json:"targetScreenId,omitempty"`
	Animation        string         `json:"animation,omitempty"`
	HapticType       string         `json:"hapticType,omitempty"`
	ImpactStyle      string         `json:"impactStyle,omitempty"`
	NotificationType string         `json:"notificationType,omitempty"`
}

const maxRawPreview = 128

// Parse turns a raw inbound frame into a Message. The structured JSON
// envelope is tried first, the legacy bare-string protocol second. Anything
// else parses to Ignored.
func Parse(raw []byte) Message {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return Ignored{}
	}

	// A JSON string literal ("continue") is legacy content in JSON clothing.
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return ParseLegacy(s)
		}
		return ignored(trimmed)
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
			return ignored(trimmed)
		}
		return fromEnvelope(env, trimmed)
	}

	return ParseLegacy(trimmed)
}

func fromEnvelope(env envelope, raw string) Message {
	switch env.Type {
	case "rampkit:variables":
		return VariablesUpdate{Vars: env.Vars}
	case "rampkit:request-vars":
		return RequestVars{}
	case "rampkit:request-review":
		return RequestReview{}
	case "rampkit:request-notification-permission":
		return RequestNotificationPermission{IOS: env.IOS, Android: env.Android}
	case "rampkit:onboarding-finished":
		return OnboardingFinished{Payload: env.Payload}
	case "rampkit:show-paywall":
		return ShowPaywall{Payload: env.Payload}
	case "rampkit:continue":
		return Continue{Animation: env.Animation}
	case "rampkit:navigate":
		return Navigate{TargetScreenID: env.TargetScreenID, Animation: env.Animation}
	case "rampkit:goBack":
		return GoBack{Animation: env.Animation}
	case "rampkit:close":
		return Close{}
	case "rampkit:haptic":
		return Haptic{
			HapticType:       env.HapticType,
			ImpactStyle:      env.ImpactStyle,
			NotificationType: env.NotificationType,
		}
	default:
		return ignored(raw)
	}
}

func ignored(raw string) Ignored {
	if len(raw) > maxRawPreview {
		raw = raw[:maxRawPreview]
	}
	return Ignored{Raw: raw}
}
