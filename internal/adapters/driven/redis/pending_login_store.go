package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PendingLoginStore = (*PendingLoginStore)(nil)

const pendingLoginPrefix = keyPrefix + "pending_login:"

// PendingLoginStore implements driven.PendingLoginStore. GETDEL makes
// consumption atomic across replicas.
type PendingLoginStore struct {
	client *redis.Client
}

// NewPendingLoginStore creates a new Redis-backed PendingLoginStore
func NewPendingLoginStore(client *redis.Client) *PendingLoginStore {
	return &PendingLoginStore{client: client}
}

// Save records a nonce with the given TTL
func (s *PendingLoginStore) Save(ctx context.Context, nonce, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, pendingLoginPrefix+nonce, userID, ttl).Err(); err != nil {
		return fmt.Errorf("save pending login: %w", err)
	}
	return nil
}

// Consume deletes the nonce and reports whether it was present
func (s *PendingLoginStore) Consume(ctx context.Context, nonce string) (bool, error) {
	err := s.client.GetDel(ctx, pendingLoginPrefix+nonce).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume pending login: %w", err)
	}
	return true, nil
}
