package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

func testSession(id, userID, refresh string, ttl time.Duration) *domain.Session {
	now := time.Now().UTC()
	return &domain.Session{
		ID:           id,
		UserID:       userID,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestDB(t))

	require.NoError(t, store.Save(ctx, testSession("s1", "u1", "r1", time.Hour)))

	session, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, "r1", session.RefreshToken)

	byRefresh, err := store.GetByRefreshToken(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "s1", byRefresh.ID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_SaveRotatesRefreshToken(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestDB(t))

	require.NoError(t, store.Save(ctx, testSession("s1", "u1", "r1", time.Hour)))
	require.NoError(t, store.Save(ctx, testSession("s1", "u1", "r2", time.Hour)))

	_, err := store.GetByRefreshToken(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	session, err := store.GetByRefreshToken(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
}

func TestSessionStore_ExpiredIsMissing(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestDB(t))

	require.NoError(t, store.Save(ctx, testSession("s1", "u1", "r1", -time.Minute)))

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestDB(t))

	require.NoError(t, store.Save(ctx, testSession("s1", "u1", "r1", time.Hour)))
	require.NoError(t, store.Save(ctx, testSession("s2", "u1", "r2", time.Hour)))
	require.NoError(t, store.Save(ctx, testSession("s3", "u2", "r3", time.Hour)))

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.NoError(t, store.Delete(ctx, "s1"))

	require.NoError(t, store.DeleteByUser(ctx, "u1"))
	_, err := store.Get(ctx, "s2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Get(ctx, "s3")
	assert.NoError(t, err)
}
