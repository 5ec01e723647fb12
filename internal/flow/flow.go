// Package flow defines the onboarding flow payload: the screens a session
// drives and the navigation graph that orders them.
package flow

import "github.com/rampkit/rampkit-go/internal/navigation"

// Screen is one independently-loaded content surface. Identity is ID, unique
// within a flow. Screens are immutable once a session starts.
type Screen struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
	CSS  string `json:"css,omitempty"`
	JS   string `json:"js,omitempty"`
}

// Onboarding is one allocation candidate: a complete flow payload plus its
// share of the 0-100 allocation range within its target.
type Onboarding struct {
	ID         string           `json:"id"`
	Name       string           `json:"name,omitempty"`
	Allocation int              `json:"allocation"`
	Screens    []Screen         `json:"screens"`
	Navigation *navigation.Data `json:"navigation,omitempty"`
	Variables  map[string]any   `json:"variables,omitempty"` // seed values for the session variable store
}

// ScreenIndex returns the ordinal position of the screen with the given id,
// or -1 if the flow has no such screen.
func (o *Onboarding) ScreenIndex(screenID string) int {
	for i, s := range o.Screens {
		if s.ID == screenID {
			return i
		}
	}
	return -1
}
