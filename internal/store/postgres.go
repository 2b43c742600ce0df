package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStateStore keeps persisted client state in the client_state table.
// It is the alternative to the Redis store for deployments that already run
// Postgres.
type PostgresStateStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewPostgresStateStore wraps db. A zero ttl keeps state forever.
func NewPostgresStateStore(db *sql.DB, ttl time.Duration) *PostgresStateStore {
	return &PostgresStateStore{db: db, ttl: ttl, now: time.Now}
}

func (s *PostgresStateStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStateStore) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	const query = `
		SELECT value FROM client_state
		WHERE client_id = $1 AND key = $2
		  AND (expires_at IS NULL OR expires_at > $3)
	`
	var value string
	err := s.db.QueryRowContext(ctx, query, clientID, key, s.now()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get client state %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStateStore) Set(ctx context.Context, clientID, key, value string) error {
	const upsert = `
		INSERT INTO client_state (client_id, key, value, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (client_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at
	`
	now := s.now()
	var expiresAt sql.NullTime
	if s.ttl > 0 {
		expiresAt = sql.NullTime{Time: now.Add(s.ttl), Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, upsert, clientID, key, value, now, expiresAt); err != nil {
		return fmt.Errorf("set client state %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStateStore) Delete(ctx context.Context, clientID, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_state WHERE client_id = $1 AND key = $2`, clientID, key); err != nil {
		return fmt.Errorf("delete client state %s: %w", key, err)
	}
	return nil
}

// PurgeExpired removes expired rows and reports how many were dropped.
func (s *PostgresStateStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM client_state WHERE expires_at IS NOT NULL AND expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge client state: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStateStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
