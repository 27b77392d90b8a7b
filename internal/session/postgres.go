package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresBackend はclient_stateテーブルに保存するBackend。
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend はPostgresBackendを生成する。
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// For はセッションIDに対応するStorageを返す。
func (b *PostgresBackend) For(sessionID string) Storage {
	return &postgresStorage{db: b.db, sessionID: sessionID}
}

type postgresStorage struct {
	db        *sql.DB
	sessionID string
}

func (s *postgresStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM client_state WHERE session_id = $1 AND key = $2`,
		s.sessionID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get client state: %w", err)
	}
	return value, nil
}

func (s *postgresStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_state (session_id, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (session_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		s.sessionID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set client state: %w", err)
	}
	return nil
}

func (s *postgresStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM client_state WHERE session_id = $1 AND key = ANY($2)`,
		s.sessionID, pq.Array(keys),
	)
	if err != nil {
		return fmt.Errorf("failed to delete client state: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Backend = (*PostgresBackend)(nil)
