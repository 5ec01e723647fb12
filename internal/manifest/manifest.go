// Package manifest loads and validates the targeting configuration the
// coordinator serves sessions from. A manifest is author-controlled input:
// validation is loud, because a bad manifest is an operator error, not a
// runtime condition to tolerate.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/rampkit/rampkit-go/internal/flow"
	"github.com/rampkit/rampkit-go/internal/targeting"
)

// Manifest is the full targeting configuration: every target with its rules
// and candidate onboarding flows.
type Manifest struct {
	Version string             `json:"version,omitempty"`
	Targets []targeting.Target `json:"targets"`
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile reads and parses a manifest from disk.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks structural invariants: unique target ids, at least one
// onboarding per target, allocations within 0-100, unique screen ids per
// flow, and every mainFlow entry naming a real screen.
func (m *Manifest) Validate() error {
	if len(m.Targets) == 0 {
		return fmt.Errorf("manifest has no targets")
	}

	targetIDs := make(map[string]struct{}, len(m.Targets))
	for _, t := range m.Targets {
		if t.ID == "" {
			return fmt.Errorf("target %q has empty id", t.Name)
		}
		if _, dup := targetIDs[t.ID]; dup {
			return fmt.Errorf("duplicate target id %q", t.ID)
		}
		targetIDs[t.ID] = struct{}{}

		if len(t.Onboardings) == 0 {
			return fmt.Errorf("target %q has no onboardings", t.ID)
		}
		for _, ob := range t.Onboardings {
			if err := validateOnboarding(t.ID, ob); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateOnboarding(targetID string, ob flow.Onboarding) error {
	if ob.ID == "" {
		return fmt.Errorf("target %q: onboarding with empty id", targetID)
	}
	if ob.Allocation < 0 || ob.Allocation > 100 {
		return fmt.Errorf("target %q: onboarding %q allocation %d outside 0-100", targetID, ob.ID, ob.Allocation)
	}
	if len(ob.Screens) == 0 {
		return fmt.Errorf("target %q: onboarding %q has no screens", targetID, ob.ID)
	}

	screenIDs := make(map[string]struct{}, len(ob.Screens))
	for _, s := range ob.Screens {
		if s.ID == "" {
			return fmt.Errorf("onboarding %q: screen with empty id", ob.ID)
		}
		if _, dup := screenIDs[s.ID]; dup {
			return fmt.Errorf("onboarding %q: duplicate screen id %q", ob.ID, s.ID)
		}
		screenIDs[s.ID] = struct{}{}
	}

	if ob.Navigation != nil {
		for _, id := range ob.Navigation.MainFlow {
			if _, ok := screenIDs[id]; !ok {
				return fmt.Errorf("onboarding %q: mainFlow references unknown screen %q", ob.ID, id)
			}
		}
	}
	return nil
}

// Fingerprint returns a stable hash of the manifest content, used to detect
// configuration changes between reloads.
func (m *Manifest) Fingerprint() (uint64, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("fingerprint manifest: %w", err)
	}
	return xxhash.Sum64(data), nil
}
