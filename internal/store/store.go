package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("not found")

// Store persists the small amount of per-user state the coordinator needs
// across sessions: the stable identity used for bucketing, the once-only
// completion flag, and the last variable snapshot.
// Implementations must be safe for concurrent use.
type Store interface {
	// StableID returns the stable identity for an app user key, generating
	// and persisting one on first sight. The same key always yields the
	// same id, since bucketing depends on it.
	StableID(ctx context.Context, appUserKey string) (string, error)

	// CompletionFired reports whether the completion event already fired
	// for this user.
	CompletionFired(ctx context.Context, appUserID string) (bool, error)

	// MarkCompletionFired sets the completion flag. Idempotent.
	MarkCompletionFired(ctx context.Context, appUserID string) error

	// SaveVariables stores the full variable snapshot, last write wins.
	SaveVariables(ctx context.Context, appUserID string, vars map[string]any) error

	// LoadVariables returns the stored snapshot, or ErrNotFound when the
	// user has none.
	LoadVariables(ctx context.Context, appUserID string) (map[string]any, error)

	// Close releases any resources held by the store.
	Close() error
}
