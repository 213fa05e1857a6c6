package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// ErrAdvisoryLockUnsupported is returned when the pool is not PostgreSQL.
var ErrAdvisoryLockUnsupported = errors.New("advisory locks require postgres")

// AdvisoryLock implements DistributedLock using PostgreSQL advisory locks.
//
// Advisory locks are session scoped: each held lock pins one pooled
// connection until Release. The TTL is ignored.
type AdvisoryLock struct {
	db *DB

	mu    sync.Mutex
	conns map[string]*sql.Conn
}

// NewAdvisoryLock creates a PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) (*AdvisoryLock, error) {
	if db.Driver() != DriverPostgres {
		return nil, ErrAdvisoryLockUnsupported
	}
	return &AdvisoryLock{db: db, conns: make(map[string]*sql.Conn)}, nil
}

// hashLockName maps a lock name to the 64-bit key space of advisory locks.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("influmetrics:lock:" + name))
	return int64(h.Sum64())
}

// Acquire tries the lock without blocking.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.conns[name]; held {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	l.conns[name] = conn
	return true, nil
}

// Release unlocks and returns the pinned connection to the pool.
// Releasing a lock that is not held is not an error.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn, held := l.conns[name]
	delete(l.conns, name)
	l.mu.Unlock()

	if !held {
		return nil
	}
	defer conn.Close()

	var released bool
	return conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released)
}

// Extend checks that the session pinning the lock is still alive. Advisory
// locks have no TTL; they are lost only with their connection.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	conn, held := l.conns[name]
	l.mu.Unlock()

	if !held {
		return fmt.Errorf("extend lock %s: %w", name, domain.ErrLockNotHeld)
	}
	if err := conn.PingContext(ctx); err != nil {
		l.mu.Lock()
		delete(l.conns, name)
		l.mu.Unlock()
		conn.Close()
		return fmt.Errorf("extend lock %s: %w: %v", name, domain.ErrLockNotHeld, err)
	}
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
