package driven

import (
	"context"
	"time"
)

// PendingLoginStore tracks issued login nonces so each pending login is
// consumed at most once.
type PendingLoginStore interface {
	// Save records a nonce for the user. It expires after ttl.
	Save(ctx context.Context, nonce, userID string, ttl time.Duration) error

	// Consume atomically deletes the nonce. Returns false if it was never
	// issued, already consumed, or expired.
	Consume(ctx context.Context, nonce string) (bool, error)
}
