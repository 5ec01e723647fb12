package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of the Store interface,
// backed by a single rampkit_users table.
//
// Schema:
//
//	CREATE TABLE rampkit_users (
//	    app_user_key     TEXT PRIMARY KEY,
//	    stable_id        UUID NOT NULL UNIQUE,
//	    completion_fired BOOLEAN NOT NULL DEFAULT FALSE,
//	    variables        JSONB,
//	    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// StableID returns the stable identity for an app user key, inserting a
// fresh one when the key is unseen. The upsert is a no-op on conflict so
// concurrent first requests for the same key converge on one id.
func (p *PostgresStore) StableID(ctx context.Context, appUserKey string) (string, error) {
	candidate := uuid.New().String()

	var stableID string
	err := p.pool.QueryRow(ctx, `
		INSERT INTO rampkit_users (app_user_key, stable_id)
		VALUES ($1, $2)
		ON CONFLICT (app_user_key) DO UPDATE SET updated_at = now()
		RETURNING stable_id`,
		appUserKey, candidate,
	).Scan(&stableID)
	if err != nil {
		return "", fmt.Errorf("stable id for %q: %w", appUserKey, err)
	}
	return stableID, nil
}

// CompletionFired reports the persisted completion flag.
func (p *PostgresStore) CompletionFired(ctx context.Context, appUserID string) (bool, error) {
	var fired bool
	err := p.pool.QueryRow(ctx,
		`SELECT completion_fired FROM rampkit_users WHERE stable_id = $1`,
		appUserID,
	).Scan(&fired)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("completion flag for %q: %w", appUserID, err)
	}
	return fired, nil
}

// MarkCompletionFired sets the completion flag. Idempotent; an unknown
// stable id is an error since ids are always minted through StableID.
func (p *PostgresStore) MarkCompletionFired(ctx context.Context, appUserID string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE rampkit_users SET completion_fired = TRUE, updated_at = now() WHERE stable_id = $1`,
		appUserID,
	)
	if err != nil {
		return fmt.Errorf("mark completion for %q: %w", appUserID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark completion for %q: %w", appUserID, ErrNotFound)
	}
	return nil
}

// SaveVariables stores the full snapshot as JSONB, last write wins.
func (p *PostgresStore) SaveVariables(ctx context.Context, appUserID string, vars map[string]any) error {
	payload, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("marshal variables for %q: %w", appUserID, err)
	}
	_, err = p.pool.Exec(ctx,
		`UPDATE rampkit_users SET variables = $2, updated_at = now() WHERE stable_id = $1`,
		appUserID, payload,
	)
	if err != nil {
		return fmt.Errorf("save variables for %q: %w", appUserID, err)
	}
	return nil
}

// LoadVariables returns the stored snapshot.
func (p *PostgresStore) LoadVariables(ctx context.Context, appUserID string) (map[string]any, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx,
		`SELECT variables FROM rampkit_users WHERE stable_id = $1`,
		appUserID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load variables for %q: %w", appUserID, err)
	}
	if len(payload) == 0 {
		return nil, ErrNotFound
	}

	var vars map[string]any
	if err := json.Unmarshal(payload, &vars); err != nil {
		return nil, fmt.Errorf("decode variables for %q: %w", appUserID, err)
	}
	return vars, nil
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
