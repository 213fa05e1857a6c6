package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

func testUser(id, email, userName string) *domain.User {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:           id,
		Email:        email,
		UserName:     userName,
		Name:         "Test User",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(newTestDB(t))

	require.NoError(t, store.Create(ctx, testUser("u1", "ana@example.com", "Ana")))

	user, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "Ana", user.UserName)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.True(t, user.CreatedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserStore_Uniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(newTestDB(t))
	require.NoError(t, store.Create(ctx, testUser("u1", "ana@example.com", "Ana")))

	err := store.Create(ctx, testUser("u2", "ana@example.com", "other"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = store.Create(ctx, testUser("u3", "bob@example.com", "ANA"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// Users without a user name do not collide
	require.NoError(t, store.Create(ctx, testUser("u4", "c@example.com", "")))
	require.NoError(t, store.Create(ctx, testUser("u5", "d@example.com", "")))
}

func TestUserStore_GetByLogin(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(newTestDB(t))
	require.NoError(t, store.Create(ctx, testUser("u1", "ana@example.com", "Ana")))

	for _, login := range []string{"ana@example.com", "Ana", "ana", "ANA"} {
		user, err := store.GetByLogin(ctx, login)
		require.NoError(t, err, login)
		assert.Equal(t, "u1", user.ID)
	}

	_, err := store.GetByLogin(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserStore_Exists(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(newTestDB(t))
	require.NoError(t, store.Create(ctx, testUser("u1", "ana@example.com", "Ana")))
	require.NoError(t, store.Create(ctx, testUser("u2", "nouser@example.com", "")))

	tests := []struct {
		email    string
		userName string
		expected bool
	}{
		{"ana@example.com", "", true},
		{"bob@example.com", "ana", true},
		{"bob@example.com", "bob", false},
		{"bob@example.com", "", false},
	}
	for _, tt := range tests {
		exists, err := store.Exists(ctx, tt.email, tt.userName)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, exists, "%s/%s", tt.email, tt.userName)
	}
}
