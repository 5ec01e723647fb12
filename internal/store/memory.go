package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type userRecord struct {
	stableID        string
	completionFired bool
	variables       map[string]any
	updatedAt       time.Time
}

// MemoryStore is an in-memory implementation of the Store interface, keyed
// by app user key with a secondary index on stable id. Suitable for
// development, testing, and single-instance deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*userRecord // appUserKey -> record
	byStable map[string]*userRecord // stableID -> record
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*userRecord),
		byStable: make(map[string]*userRecord),
	}
}

// StableID returns the stable identity for an app user key, creating one on
// first sight.
func (m *MemoryStore) StableID(ctx context.Context, appUserKey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.users[appUserKey]; ok {
		return rec.stableID, nil
	}
	rec := &userRecord{
		stableID:  uuid.New().String(),
		updatedAt: time.Now().UTC(),
	}
	m.users[appUserKey] = rec
	m.byStable[rec.stableID] = rec
	return rec.stableID, nil
}

// CompletionFired reports whether the completion flag is set. An unknown
// user has simply not completed yet.
func (m *MemoryStore) CompletionFired(ctx context.Context, appUserID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byStable[appUserID]
	if !ok {
		return false, nil
	}
	return rec.completionFired, nil
}

// MarkCompletionFired sets the completion flag, creating the record if the
// stable id was minted elsewhere.
func (m *MemoryStore) MarkCompletionFired(ctx context.Context, appUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.ensureStable(appUserID)
	rec.completionFired = true
	rec.updatedAt = time.Now().UTC()
	return nil
}

// SaveVariables stores the full snapshot, replacing any previous one.
func (m *MemoryStore) SaveVariables(ctx context.Context, appUserID string, vars map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.ensureStable(appUserID)
	copied := make(map[string]any, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	rec.variables = copied
	rec.updatedAt = time.Now().UTC()
	return nil
}

// LoadVariables returns a copy of the stored snapshot.
func (m *MemoryStore) LoadVariables(ctx context.Context, appUserID string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byStable[appUserID]
	if !ok || rec.variables == nil {
		return nil, ErrNotFound
	}
	copied := make(map[string]any, len(rec.variables))
	for k, v := range rec.variables {
		copied[k] = v
	}
	return copied, nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}

// ensureStable returns the record for a stable id, creating a bare one when
// the id was issued by a different instance. Caller holds the write lock.
func (m *MemoryStore) ensureStable(appUserID string) *userRecord {
	if rec, ok := m.byStable[appUserID]; ok {
		return rec
	}
	rec := &userRecord{stableID: appUserID}
	m.byStable[appUserID] = rec
	return rec
}
