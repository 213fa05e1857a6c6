package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

func newTestTokenStore(t *testing.T, sealer TokenSealer) (*TokenStore, *DB) {
	t.Helper()
	db := newTestDB(t)
	return NewTokenStore(db, sealer, newTestClock().Now), db
}

func connectedInput() *domain.TokenBundleInput {
	expires := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	return &domain.TokenBundleInput{
		InternalUserID:    "user-1",
		ExternalAccountID: "ig_42",
		UserAccessToken:   "l1",
		PageAccessToken:   "pt_1",
		LinkedPageID:      "pg_9",
		DisplayName:       "acme",
		AccountKind:       domain.AccountKindBusiness,
		ExpiresAt:         &expires,
		GrantedScopes:     []string{"instagram_basic", "pages_show_list"},
		IsConnected:       true,
	}
}

func TestTokenStore_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestTokenStore(t, nil)

	require.NoError(t, store.Upsert(ctx, connectedInput()))

	bundle, err := store.FindByExternalID(ctx, "ig_42")
	require.NoError(t, err)
	assert.NotEmpty(t, bundle.ID)
	assert.Equal(t, "user-1", bundle.InternalUserID)
	assert.Equal(t, "l1", bundle.UserAccessToken)
	assert.Equal(t, "pt_1", bundle.PageAccessToken)
	assert.Equal(t, "pg_9", bundle.LinkedPageID)
	assert.Equal(t, "acme", bundle.DisplayName)
	assert.Equal(t, domain.AccountKindBusiness, bundle.AccountKind)
	assert.Equal(t, []string{"instagram_basic", "pages_show_list"}, bundle.GrantedScopes)
	assert.True(t, bundle.IsConnected)
	require.NotNil(t, bundle.ExpiresAt)
	assert.True(t, bundle.ExpiresAt.Equal(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)))
	assert.Nil(t, bundle.LastRefreshedAt)

	_, err = store.FindByExternalID(ctx, "ig_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenStore_UpsertValidates(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestTokenStore(t, nil)

	err := store.Upsert(ctx, &domain.TokenBundleInput{ExternalAccountID: "ig_42", IsConnected: true})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)

	err = store.Upsert(ctx, &domain.TokenBundleInput{UserAccessToken: "l1"})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestTokenStore_UpsertMergesOneRowPerAccount(t *testing.T) {
	ctx := context.Background()
	store, db := newTestTokenStore(t, nil)

	require.NoError(t, store.Upsert(ctx, connectedInput()))
	first, _ := store.FindByExternalID(ctx, "ig_42")

	refreshed := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Upsert(ctx, &domain.TokenBundleInput{
		ExternalAccountID: "ig_42",
		UserAccessToken:   "l2",
		IsConnected:       true,
		LastRefreshedAt:   refreshed,
	}))

	second, err := store.FindByExternalID(ctx, "ig_42")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "l2", second.UserAccessToken)
	assert.Equal(t, "pt_1", second.PageAccessToken)
	assert.Equal(t, "user-1", second.InternalUserID)
	assert.Equal(t, "acme", second.DisplayName)
	assert.True(t, second.ExpiresAt.Equal(*first.ExpiresAt))
	assert.True(t, second.LastRefreshedAt.Equal(refreshed))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))

	var count int
	require.NoError(t, db.GetContext(ctx, &count, "SELECT COUNT(*) FROM token_bundles"))
	assert.Equal(t, 1, count)
}

func TestTokenStore_FindByInternalUserID_LatestWins(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestTokenStore(t, nil)

	for _, id := range []string{"ig_1", "ig_2", "ig_3"} {
		in := connectedInput()
		in.ExternalAccountID = id
		require.NoError(t, store.Upsert(ctx, in))
	}

	latest, err := store.FindByInternalUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ig_3", latest.ExternalAccountID)

	// Touching an older bundle makes it the latest
	require.NoError(t, store.Upsert(ctx, &domain.TokenBundleInput{
		ExternalAccountID: "ig_1",
		UserAccessToken:   "l9",
		IsConnected:       true,
	}))
	latest, err = store.FindByInternalUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ig_1", latest.ExternalAccountID)

	_, err = store.FindByInternalUserID(ctx, "user-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenStore_Clear(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestTokenStore(t, nil)

	require.NoError(t, store.Upsert(ctx, connectedInput()))
	before, _ := store.FindByExternalID(ctx, "ig_42")

	require.NoError(t, store.Clear(ctx, before.ID))

	after, err := store.FindByExternalID(ctx, "ig_42")
	require.NoError(t, err)
	assert.False(t, after.IsConnected)
	assert.Empty(t, after.UserAccessToken)
	assert.Empty(t, after.PageAccessToken)
	assert.Empty(t, after.LinkedPageID)
	assert.Nil(t, after.ExpiresAt)
	assert.Nil(t, after.GrantedScopes)
	assert.Equal(t, "user-1", after.InternalUserID)
	assert.Equal(t, "acme", after.DisplayName)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.False(t, after.ToStatus().Connected)

	assert.ErrorIs(t, store.Clear(ctx, "missing"), domain.ErrNotFound)
}

func TestTokenStore_ClearByInternalUserID(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestTokenStore(t, nil)

	first := connectedInput()
	first.ExternalAccountID = "ig_A"
	second := connectedInput()
	second.ExternalAccountID = "ig_B"
	other := connectedInput()
	other.InternalUserID = "user-2"
	other.ExternalAccountID = "ig_C"
	for _, in := range []*domain.TokenBundleInput{first, second, other} {
		require.NoError(t, store.Upsert(ctx, in))
	}

	cleared, err := store.ClearByInternalUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)

	for _, id := range []string{"ig_A", "ig_B"} {
		bundle, err := store.FindByExternalID(ctx, id)
		require.NoError(t, err)
		assert.False(t, bundle.IsConnected, id)
		assert.Empty(t, bundle.UserAccessToken, id)
		assert.Empty(t, bundle.PageAccessToken, id)
		assert.Nil(t, bundle.ExpiresAt, id)
	}

	untouched, err := store.FindByExternalID(ctx, "ig_C")
	require.NoError(t, err)
	assert.True(t, untouched.IsConnected)
	assert.Equal(t, "l1", untouched.UserAccessToken)

	refreshable, err := store.ListRefreshable(ctx, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, refreshable, 1)
	assert.Equal(t, "ig_C", refreshable[0].ExternalAccountID)

	cleared, err = store.ClearByInternalUserID(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, cleared)
}

func TestTokenStore_ReconnectAfterClear(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestTokenStore(t, nil)

	require.NoError(t, store.Upsert(ctx, connectedInput()))
	bundle, _ := store.FindByExternalID(ctx, "ig_42")
	require.NoError(t, store.Clear(ctx, bundle.ID))

	in := connectedInput()
	in.PageAccessToken = "pt_2"
	require.NoError(t, store.Upsert(ctx, in))

	again, err := store.FindByExternalID(ctx, "ig_42")
	require.NoError(t, err)
	assert.Equal(t, bundle.ID, again.ID)
	assert.True(t, again.Connected())
	assert.Equal(t, "pt_2", again.PageAccessToken)
}

func TestTokenStore_ListRefreshable(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestTokenStore(t, nil)
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	seed := func(id string, expires time.Duration, userToken string) {
		at := base.Add(expires)
		require.NoError(t, store.Upsert(ctx, &domain.TokenBundleInput{
			ExternalAccountID: id,
			UserAccessToken:   userToken,
			PageAccessToken:   "pt_" + id,
			ExpiresAt:         &at,
			IsConnected:       true,
		}))
	}
	seed("ig_late", 48*time.Hour, "l_late")
	seed("ig_soon", 24*time.Hour, "l_soon")
	seed("ig_far", 90*24*time.Hour, "l_far")

	cleared := "ig_cleared"
	seed(cleared, time.Hour, "l_cleared")
	b, _ := store.FindByExternalID(ctx, cleared)
	require.NoError(t, store.Clear(ctx, b.ID))

	bundles, err := store.ListRefreshable(ctx, base.Add(7*24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	assert.Equal(t, "ig_soon", bundles[0].ExternalAccountID)
	assert.Equal(t, "ig_late", bundles[1].ExternalAccountID)

	bundles, err = store.ListRefreshable(ctx, base.Add(7*24*time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, bundles, 1)
}

func TestTokenStore_EncryptsTokensAtRest(t *testing.T) {
	ctx := context.Background()
	encryptor, err := NewSecretEncryptor(testKey)
	require.NoError(t, err)
	store, db := newTestTokenStore(t, encryptor)

	require.NoError(t, store.Upsert(ctx, connectedInput()))

	var raw []byte
	require.NoError(t, db.GetContext(ctx, &raw, "SELECT user_access_token FROM token_bundles"))
	assert.Equal(t, byte(secretVersion), raw[0])
	assert.False(t, strings.Contains(string(raw), "l1"))

	bundle, err := store.FindByExternalID(ctx, "ig_42")
	require.NoError(t, err)
	assert.Equal(t, "l1", bundle.UserAccessToken)
	assert.Equal(t, "pt_1", bundle.PageAccessToken)

	// A store opened with a different key cannot read the tokens
	other, _ := NewSecretEncryptor([]byte("10987654321098765432109876543210"))
	_, err = NewTokenStore(db, other, nil).FindByExternalID(ctx, "ig_42")
	var perr *domain.PersistenceError
	assert.ErrorAs(t, err, &perr)
}
