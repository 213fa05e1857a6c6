package database

import (
	"context"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PendingLoginStore = (*PendingLoginStore)(nil)

// PendingLoginStore implements driven.PendingLoginStore for deployments
// without Redis. Consume is a single DELETE so a nonce is used at most once.
type PendingLoginStore struct {
	db  *DB
	now func() time.Time
}

// NewPendingLoginStore creates a new PendingLoginStore
func NewPendingLoginStore(db *DB, now func() time.Time) *PendingLoginStore {
	if now == nil {
		now = time.Now
	}
	return &PendingLoginStore{db: db, now: now}
}

// Save records a nonce and prunes expired ones
func (s *PendingLoginStore) Save(ctx context.Context, nonce, userID string, ttl time.Duration) error {
	now := s.now()

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM pending_logins WHERE expires_at <= ?`), toMillis(now)); err != nil {
		return persistenceError("prune pending logins", err)
	}

	query := `INSERT INTO pending_logins (nonce, user_id, expires_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query), nonce, userID, toMillis(now.Add(ttl)))
	return persistenceError("save pending login", err)
}

// Consume deletes an unexpired nonce and reports whether it existed
func (s *PendingLoginStore) Consume(ctx context.Context, nonce string) (bool, error) {
	query := `DELETE FROM pending_logins WHERE nonce = ? AND expires_at > ?`
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), nonce, toMillis(s.now()))
	if err != nil {
		return false, persistenceError("consume pending login", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, persistenceError("consume pending login", err)
	}
	return rowsAffected > 0, nil
}
