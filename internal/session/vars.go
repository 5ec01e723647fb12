package session

import (
	"reflect"
	"strings"
	"time"
)

// ReservedPrefix marks store-authored variable keys. Surfaces may read them
// but never write them.
const ReservedPrefix = "onboarding."

// Default reconciliation windows. Empirically tuned; treated as configuration,
// not derived from any measured property.
const (
	DefaultSettlingWindow = 300 * time.Millisecond
	DefaultStaleWindow    = 600 * time.Millisecond
)

// VarStore is the single authoritative variable map for one session. All
// surface writes funnel through Apply, whose ordered rule set is the
// concurrency-control discipline that replaces locks across surfaces.
type VarStore struct {
	values   map[string]any
	settling time.Duration
	stale    time.Duration
}

// WriteContext carries the per-surface state Apply needs to filter a write.
type WriteContext struct {
	FromActive  bool      // the writing surface is the currently active one
	ActivatedAt time.Time // when the writing surface last became active
	LastSentAt  time.Time // when the store last sent values to the writing surface
	Now         time.Time
}

// NewVarStore creates a store seeded with the flow's default variables.
// Non-positive windows fall back to the defaults.
func NewVarStore(seed map[string]any, settling, stale time.Duration) *VarStore {
	if settling <= 0 {
		settling = DefaultSettlingWindow
	}
	if stale <= 0 {
		stale = DefaultStaleWindow
	}
	values := make(map[string]any, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &VarStore{values: values, settling: settling, stale: stale}
}

// Apply merges a surface write under the sync-protocol rules, evaluated in
// order:
//
//  1. Writes from a non-active surface are rejected outright.
//  2. Inside the settling window (after the surface became active) or the
//     stale window (after values were last sent to it), an empty incoming
//     value never overwrites a non-empty host value. This protects user
//     input from the surface's own stale echo of defaults.
//  3. Reserved-namespace keys ("onboarding.") are always dropped.
//  4. Surviving keys that differ from the host value are merged.
//
// ok=false means the write was rejected entirely (rule 1); changed reports
// whether any key was merged, in which case the caller re-sends the map to
// the originating surface to keep its copy authoritative.
func (s *VarStore) Apply(vars map[string]any, wc WriteContext) (changed, ok bool) {
	if !wc.FromActive {
		return false, false
	}

	guarded := wc.Now.Sub(wc.ActivatedAt) < s.settling || wc.Now.Sub(wc.LastSentAt) < s.stale

	for key, incoming := range vars {
		if strings.HasPrefix(key, ReservedPrefix) {
			continue
		}
		if guarded {
			host, exists := s.values[key]
			if exists && !isEmptyValue(host) && isEmptyValue(incoming) {
				continue // stale echo of a default; keep the user's input
			}
		}
		if current, exists := s.values[key]; !exists || !reflect.DeepEqual(current, incoming) {
			s.values[key] = incoming
			changed = true
		}
	}
	return changed, true
}

// Set is a store-authored write (host events, permission results). It
// bypasses the surface filters, including the reserved namespace. Returns
// whether the value changed.
func (s *VarStore) Set(key string, value any) bool {
	if current, exists := s.values[key]; exists && reflect.DeepEqual(current, value) {
		return false
	}
	s.values[key] = value
	return true
}

// Values returns a copy of the current map.
func (s *VarStore) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// isEmptyValue reports whether a surface-provided value counts as empty for
// the stale-echo filter: nil or the empty string. Zero numbers and false are
// real values.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}
