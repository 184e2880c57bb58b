package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tempo/internal/models"
)

// SQLiteTokenStore implements [models.TokenStore] over the session_tokens table.
type SQLiteTokenStore struct {
	db *sql.DB
}

// NewSQLiteTokenStore creates a new [SQLiteTokenStore] with the given, already migrated, database connection
func NewSQLiteTokenStore(db *sql.DB) *SQLiteTokenStore {
	return &SQLiteTokenStore{db: db}
}

// Get retrieves the token pair stored for sid
func (r *SQLiteTokenStore) Get(ctx context.Context, sid string) (models.TokenPair, error) {
	query := `
		SELECT access_token, refresh_token, expires_at
		FROM session_tokens
		WHERE session_id = ?
	`

	var (
		pair      models.TokenPair
		expiresAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, sid).Scan(&pair.AccessToken, &pair.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TokenPair{}, notFound(sid)
	}
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to query session tokens: %w", err)
	}

	if expiresAt.Valid {
		pair.ExpiresAt = expiresAt.Time.UTC()
	}
	return pair, nil
}

// Put upserts the token pair for sid
func (r *SQLiteTokenStore) Put(ctx context.Context, sid string, pair models.TokenPair) error {
	query := `
		INSERT INTO session_tokens (session_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	var expiresAt sql.NullTime
	if !pair.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: pair.ExpiresAt.UTC(), Valid: true}
	}

	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, sid, pair.AccessToken, pair.RefreshToken, expiresAt, now, now); err != nil {
		return fmt.Errorf("failed to store session tokens: %w", err)
	}
	return nil
}

// Delete removes the token pair for sid
func (r *SQLiteTokenStore) Delete(ctx context.Context, sid string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM session_tokens WHERE session_id = ?", sid); err != nil {
		return fmt.Errorf("failed to delete session tokens: %w", err)
	}
	return nil
}

// Prune deletes rows not written since before cutoff and returns how many were removed.
func (r *SQLiteTokenStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM session_tokens WHERE updated_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune session tokens: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (r *SQLiteTokenStore) Close() error {
	return r.db.Close()
}
