package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

const sessionColumns = `id, user_id, refresh_token, expires_at, created_at`

// SessionStore implements driven.SessionStore for deployments without Redis
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

type sessionRow struct {
	ID           string `db:"id"`
	UserID       string `db:"user_id"`
	RefreshToken string `db:"refresh_token"`
	ExpiresAt    int64  `db:"expires_at"`
	CreatedAt    int64  `db:"created_at"`
}

// Save stores a session
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at
	`

	_, err := s.db.ExecContext(ctx, s.db.Rebind(query),
		session.ID,
		session.UserID,
		session.RefreshToken,
		toMillis(session.ExpiresAt),
		toMillis(session.CreatedAt),
	)
	return persistenceError("save session", err)
}

// Get retrieves a session by ID. Expired sessions are reported as missing.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	return s.getOne(ctx, "get session", query, id)
}

// GetByRefreshToken retrieves a session by refresh token value
func (s *SessionStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token = ?`
	return s.getOne(ctx, "get session by refresh token", query, refreshToken)
}

// Delete deletes a session. Deleting a missing session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	return persistenceError("delete session", err)
}

// DeleteByUser deletes all sessions for a user (logout everywhere)
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE user_id = ?`), userID)
	return persistenceError("delete user sessions", err)
}

func (s *SessionStore) getOne(ctx context.Context, op, query string, args ...any) (*domain.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, persistenceError(op, err)
	}

	session := &domain.Session{
		ID:           row.ID,
		UserID:       row.UserID,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    fromMillis(row.ExpiresAt),
		CreatedAt:    fromMillis(row.CreatedAt),
	}
	if session.IsExpired() {
		return nil, domain.ErrNotFound
	}
	return session, nil
}
