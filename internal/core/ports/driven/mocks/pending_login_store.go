package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Ensure MockPendingLoginStore implements PendingLoginStore
var _ driven.PendingLoginStore = (*MockPendingLoginStore)(nil)

// MockPendingLoginStore is an in-memory PendingLoginStore
type MockPendingLoginStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time
}

// NewMockPendingLoginStore creates a new MockPendingLoginStore
func NewMockPendingLoginStore() *MockPendingLoginStore {
	return &MockPendingLoginStore{nonces: make(map[string]time.Time)}
}

func (m *MockPendingLoginStore) Save(ctx context.Context, nonce, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonces[nonce] = time.Now().Add(ttl)
	return nil
}

func (m *MockPendingLoginStore) Consume(ctx context.Context, nonce string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.nonces[nonce]
	if !ok {
		return false, nil
	}
	delete(m.nonces, nonce)
	return time.Now().Before(expiry), nil
}
