package protocol

import "strings"

// ParseLegacy parses the plain-string protocol older surface bundles still
// emit. The recognized subset is frozen; new message types only exist in the
// structured envelope.
func ParseLegacy(s string) Message {
	s = strings.TrimSpace(s)

	switch s {
	case "rampkit:tap", "next", "continue":
		return Continue{}
	case "rampkit:close":
		return Close{}
	case "rampkit:goBack":
		return GoBack{}
	}

	if target, ok := strings.CutPrefix(s, "rampkit:navigate:"); ok && target != "" {
		return Navigate{TargetScreenID: target}
	}

	if rest, ok := strings.CutPrefix(s, "haptic:"); ok {
		return parseLegacyHaptic(rest)
	}

	return ignored(s)
}

// parseLegacyHaptic decodes "haptic:<type>[:<style>]", e.g. "haptic:impact:light"
// or "haptic:notification:success".
func parseLegacyHaptic(rest string) Message {
	parts := strings.SplitN(rest, ":", 2)
	if parts[0] == "" {
		return ignored("haptic:" + rest)
	}

	h := Haptic{HapticType: parts[0]}
	if len(parts) == 2 {
		switch parts[0] {
		case "impact":
			h.ImpactStyle = parts[1]
		case "notification":
			h.NotificationType = parts[1]
		}
	}
	return h
}
