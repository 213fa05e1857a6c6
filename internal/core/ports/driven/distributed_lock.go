package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates the token refresher across instances so a
// bundle is refreshed by one replica at a time.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns false without error if another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Safe to call when the lock is not held.
	Release(ctx context.Context, name string) error

	// Extend renews a lock held by this instance for another ttl.
	// Returns domain.ErrLockNotHeld once the lock has been lost.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
