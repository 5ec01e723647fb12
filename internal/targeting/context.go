// Package targeting selects which onboarding flow a user sees. It evaluates
// prioritized rule sets against a read-only context snapshot and delegates
// A/B splits to the allocation engine.
package targeting

import "strings"

// Context is a read-only snapshot of user, device, and app attributes, built
// once per session from device-info input and immutable for the session's
// lifetime.
//
// Rule attributes address it as "<category>.<field>", e.g. "device.platform"
// or "user.isNewUser".
type Context struct {
	Device      map[string]any `json:"device,omitempty"`
	App         map[string]any `json:"app,omitempty"`
	User        map[string]any `json:"user,omitempty"`
	Attribution map[string]any `json:"attribution,omitempty"`
}

// Resolve looks up a dotted attribute. It returns ok=false for malformed
// attributes (not exactly two segments), unknown categories, unknown fields,
// and nil values: "absent" never matches, which is distinct from falsy values
// that may.
func (c *Context) Resolve(attribute string) (any, bool) {
	if c == nil {
		return nil, false
	}
	parts := strings.Split(attribute, ".")
	if len(parts) != 2 {
		return nil, false
	}

	var category map[string]any
	switch parts[0] {
	case "device":
		category = c.Device
	case "app":
		category = c.App
	case "user":
		category = c.User
	case "attribution":
		category = c.Attribution
	default:
		return nil, false
	}
	if category == nil {
		return nil, false
	}

	v, ok := category[parts[1]]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// asMap renders the context as a plain nested map for JSON Logic expressions.
func (c *Context) asMap() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	return map[string]any{
		"device":      c.Device,
		"app":         c.App,
		"user":        c.User,
		"attribution": c.Attribution,
	}
}
