package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionStore tracks issued access tokens by their JWT ID so that logout
// can revoke them before they expire.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a session store.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create records a session.
func (s *SessionStore) Create(ctx context.Context, id string, userID int64, expiresAt time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)",
		id, userID, expiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Validate returns the caller behind a live session. The role is read from
// the user row so role changes apply to existing sessions.
func (s *SessionStore) Validate(ctx context.Context, id string) (Caller, error) {
	var c Caller
	var expiresAt time.Time

	err := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.role, s.expires_at FROM sessions s JOIN users u ON u.id = s.user_id WHERE s.id = ?`,
		id,
	).Scan(&c.ID, &c.Role, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Caller{}, fmt.Errorf("%w: unknown session", ErrInvalidToken)
	}
	if err != nil {
		return Caller{}, fmt.Errorf("querying session: %w", err)
	}

	if time.Now().After(expiresAt) {
		if err := s.Destroy(ctx, id); err != nil {
			return Caller{}, fmt.Errorf("deleting expired session: %w", err)
		}
		return Caller{}, fmt.Errorf("%w: session expired", ErrInvalidToken)
	}

	return c, nil
}

// Destroy removes a session. Removing an unknown session is not an error.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Cleanup removes expired sessions and returns how many were removed.
func (s *SessionStore) Cleanup(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleaning up sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking affected rows: %w", err)
	}
	return n, nil
}
