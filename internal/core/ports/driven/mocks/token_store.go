package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Ensure MockTokenStore implements TokenStore
var _ driven.TokenStore = (*MockTokenStore)(nil)

// MockTokenStore is an in-memory TokenStore with the same merge semantics as
// the SQL store: empty input fields keep stored values.
type MockTokenStore struct {
	mu      sync.RWMutex
	bundles map[string]*domain.TokenBundle // by external account id
	clock   time.Time
	nextID  int

	UpsertCalls int
	ClearCalls  int

	// Optional error injection
	UpsertErr error
	FindErr   error
	ClearErr  error
}

// NewMockTokenStore creates a new MockTokenStore
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{
		bundles: make(map[string]*domain.TokenBundle),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so "most recent" is deterministic.
func (m *MockTokenStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *MockTokenStore) Upsert(ctx context.Context, input *domain.TokenBundleInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	now := m.tick()
	b, ok := m.bundles[input.ExternalAccountID]
	if !ok {
		m.nextID++
		b = &domain.TokenBundle{
			ID:                fmt.Sprintf("bundle-%d", m.nextID),
			ExternalAccountID: input.ExternalAccountID,
			CreatedAt:         now,
		}
		m.bundles[input.ExternalAccountID] = b
	}

	keep := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	keep(&b.InternalUserID, input.InternalUserID)
	keep(&b.UserAccessToken, input.UserAccessToken)
	keep(&b.PageAccessToken, input.PageAccessToken)
	keep(&b.LinkedPageID, input.LinkedPageID)
	keep(&b.DisplayName, input.DisplayName)
	keep(&b.AccountKind, input.AccountKind)
	if input.ExpiresAt != nil {
		t := *input.ExpiresAt
		b.ExpiresAt = &t
	}
	if len(input.GrantedScopes) > 0 {
		b.GrantedScopes = append([]string(nil), input.GrantedScopes...)
	}
	if !input.LastRefreshedAt.IsZero() {
		t := input.LastRefreshedAt
		b.LastRefreshedAt = &t
	}
	b.IsConnected = input.IsConnected
	b.UpdatedAt = now
	return nil
}

func (m *MockTokenStore) FindByExternalID(ctx context.Context, externalAccountID string) (*domain.TokenBundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	b, ok := m.bundles[externalAccountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MockTokenStore) FindByInternalUserID(ctx context.Context, userID string) (*domain.TokenBundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	var latest *domain.TokenBundle
	for _, b := range m.bundles {
		if b.InternalUserID != userID {
			continue
		}
		if latest == nil || b.UpdatedAt.After(latest.UpdatedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MockTokenStore) Clear(ctx context.Context, bundleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	for _, b := range m.bundles {
		if b.ID != bundleID {
			continue
		}
		b.IsConnected = false
		b.UserAccessToken = ""
		b.PageAccessToken = ""
		b.ExpiresAt = nil
		b.GrantedScopes = nil
		b.LinkedPageID = ""
		b.UpdatedAt = m.tick()
		return nil
	}
	return domain.ErrNotFound
}

func (m *MockTokenStore) ClearByInternalUserID(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return 0, m.ClearErr
	}
	now := m.tick()
	var n int64
	for _, b := range m.bundles {
		if b.InternalUserID != userID {
			continue
		}
		b.IsConnected = false
		b.UserAccessToken = ""
		b.PageAccessToken = ""
		b.ExpiresAt = nil
		b.GrantedScopes = nil
		b.LinkedPageID = ""
		b.UpdatedAt = now
		n++
	}
	return n, nil
}

func (m *MockTokenStore) ListRefreshable(ctx context.Context, before time.Time, limit int) ([]*domain.TokenBundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TokenBundle
	for _, b := range m.bundles {
		if b.IsConnected && b.UserAccessToken != "" && b.ExpiresAt != nil && b.ExpiresAt.Before(before) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored bundles
func (m *MockTokenStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bundles)
}
