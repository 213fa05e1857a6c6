package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = keyPrefix + "lock:"

// Lock implements DistributedLock on Redis keys with a TTL. Every successful
// Acquire stores a fresh token as the key value, and Release and Extend only
// act while the key still carries that token.
type Lock struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string // lock name -> token of the current hold
}

// NewLock creates a Redis-backed distributed lock.
func NewLock(client *redis.Client) *Lock {
	return &Lock{
		client: client,
		tokens: make(map[string]string),
	}
}

// Acquire takes the lock if no one holds it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, lockPrefix+name, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[name] = token
	l.mu.Unlock()
	return true, nil
}

// compareAndDelete removes KEYS[1] if it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// compareAndExpire resets the TTL of KEYS[1] to ARGV[2] ms if it still holds ARGV[1].
var compareAndExpire = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Release drops the lock if this instance still holds it.
func (l *Lock) Release(ctx context.Context, name string) error {
	token, held := l.forget(name)
	if !held {
		return nil
	}
	err := compareAndDelete.Run(ctx, l.client, []string{lockPrefix + name}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend renews the TTL. A lock that expired or was taken by another
// instance is forgotten and reported as domain.ErrLockNotHeld.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	token, held := l.tokens[name]
	l.mu.Unlock()
	if !held {
		return fmt.Errorf("extend lock %s: %w", name, domain.ErrLockNotHeld)
	}

	renewed, err := compareAndExpire.Run(ctx, l.client, []string{lockPrefix + name}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if renewed == 0 {
		l.forget(name)
		return fmt.Errorf("extend lock %s: %w", name, domain.ErrLockNotHeld)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *Lock) forget(name string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	token, held := l.tokens[name]
	delete(l.tokens, name)
	return token, held
}
