package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driving"
)

type connectionFixture struct {
	svc      driving.ConnectionService
	provider *mocks.MockInstagramProvider
	store    *mocks.MockTokenStore
	pending  *mocks.MockPendingLoginStore
	now      time.Time
}

func newConnectionFixture() *connectionFixture {
	f := &connectionFixture{
		provider: &mocks.MockInstagramProvider{},
		store:    mocks.NewMockTokenStore(),
		pending:  mocks.NewMockPendingLoginStore(),
		now:      fixedNow,
	}
	clock := func() time.Time { return f.now }
	login := NewLoginService(LoginServiceConfig{Provider: f.provider, Store: f.store, Now: clock})
	f.svc = NewConnectionService(ConnectionServiceConfig{
		Provider:      f.provider,
		Store:         f.store,
		Signer:        mocks.MockStateSigner{},
		PendingLogins: f.pending,
		Login:         login,
		Now:           clock,
	})
	return f
}

func TestStartLogin(t *testing.T) {
	f := newConnectionFixture()

	resp, err := f.svc.StartLogin(context.Background(), domain.Principal{UserID: "user-1"},
		driving.StartLoginRequest{ReturnPath: "/dashboard"})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(resp.State, ".signed"))
	assert.Contains(t, resp.URL, resp.State)
	assert.True(t, resp.ExpiresAt.Equal(fixedNow.Add(10*time.Minute)))

	payload, ok := mocks.MockStateSigner{}.Verify(resp.State)
	require.True(t, ok)
	state, err := domain.DecodePendingLoginState(payload)
	require.NoError(t, err)
	assert.Equal(t, "user-1", state.UserID)
	assert.Equal(t, "/dashboard", state.ReturnPath)
	assert.NotEmpty(t, state.Nonce)
}

func TestStartLogin_UnsafeReturnPathUsesDefault(t *testing.T) {
	f := newConnectionFixture()

	resp, err := f.svc.StartLogin(context.Background(), domain.Principal{UserID: "user-1"},
		driving.StartLoginRequest{ReturnPath: "https://evil.example"})
	require.NoError(t, err)

	payload, _ := mocks.MockStateSigner{}.Verify(resp.State)
	state, _ := domain.DecodePendingLoginState(payload)
	assert.Equal(t, "/settings", state.ReturnPath)
}

func TestStartLogin_Unauthenticated(t *testing.T) {
	f := newConnectionFixture()
	_, err := f.svc.StartLogin(context.Background(), domain.Principal{}, driving.StartLoginRequest{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCallback(t *testing.T) {
	identity := &domain.AccountIdentity{ExternalAccountID: "ig_42", PageAccessToken: "pt_1", LinkedPageID: "pg_9"}

	tests := []struct {
		name    string
		request func(state string) driving.CallbackRequest
		wantErr error
	}{
		{
			name: "cookie",
			request: func(state string) driving.CallbackRequest {
				return driving.CallbackRequest{Code: "abc123", CookieState: state}
			},
		},
		{
			name: "state fallback",
			request: func(state string) driving.CallbackRequest {
				return driving.CallbackRequest{Code: "abc123", State: state}
			},
		},
		{
			name: "bad cookie falls back to state",
			request: func(state string) driving.CallbackRequest {
				return driving.CallbackRequest{Code: "abc123", CookieState: "garbage", State: state}
			},
		},
		{
			name: "tampered state",
			request: func(state string) driving.CallbackRequest {
				return driving.CallbackRequest{Code: "abc123", State: state + "x"}
			},
			wantErr: domain.ErrUnauthorized,
		},
		{
			name:    "no identity",
			request: func(string) driving.CallbackRequest { return driving.CallbackRequest{Code: "abc123"} },
			wantErr: domain.ErrUnauthorized,
		},
		{
			name:    "missing code",
			request: func(state string) driving.CallbackRequest { return driving.CallbackRequest{CookieState: state} },
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConnectionFixture()
			expectHappyExchange(f.provider, identity)

			start, err := f.svc.StartLogin(context.Background(), domain.Principal{UserID: "user-1"},
				driving.StartLoginRequest{ReturnPath: "/dashboard"})
			require.NoError(t, err)

			resp, err := f.svc.Callback(context.Background(), tt.request(start.State))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, f.store.Count())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "/dashboard", resp.ReturnPath)
			assert.Equal(t, "pt_1", resp.Result.AccessToken)

			bundle, err := f.store.FindByInternalUserID(context.Background(), "user-1")
			require.NoError(t, err)
			assert.Equal(t, "ig_42", bundle.ExternalAccountID)
		})
	}
}

func TestCallback_ReplayRejected(t *testing.T) {
	f := newConnectionFixture()
	expectHappyExchange(f.provider, &domain.AccountIdentity{ExternalAccountID: "ig_42", PageAccessToken: "pt_1"})

	start, err := f.svc.StartLogin(context.Background(), domain.Principal{UserID: "user-1"}, driving.StartLoginRequest{})
	require.NoError(t, err)

	_, err = f.svc.Callback(context.Background(), driving.CallbackRequest{Code: "abc123", State: start.State})
	require.NoError(t, err)

	_, err = f.svc.Callback(context.Background(), driving.CallbackRequest{Code: "abc123", CookieState: start.State, State: start.State})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, err, domain.ErrPendingLoginInvalid)
}

func TestCallback_ExpiredState(t *testing.T) {
	f := newConnectionFixture()

	start, err := f.svc.StartLogin(context.Background(), domain.Principal{UserID: "user-1"}, driving.StartLoginRequest{})
	require.NoError(t, err)

	f.now = f.now.Add(11 * time.Minute)
	_, err = f.svc.Callback(context.Background(), driving.CallbackRequest{Code: "abc123", State: start.State})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	f.provider.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture()

	status, err := f.svc.Status(ctx, domain.Principal{UserID: "user-1"})
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Nil(t, status.ExternalAccountID)

	require.NoError(t, f.store.Upsert(ctx, &domain.TokenBundleInput{
		InternalUserID:    "user-1",
		ExternalAccountID: "ig_42",
		DisplayName:       "acme",
		UserAccessToken:   "l1",
		IsConnected:       true,
	}))

	status, err = f.svc.Status(ctx, domain.Principal{UserID: "user-1"})
	require.NoError(t, err)
	assert.True(t, status.Connected)
	require.NotNil(t, status.ExternalAccountID)
	assert.Equal(t, "ig_42", *status.ExternalAccountID)

	f.provider.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestStatus_LatestBundleWins(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture()

	for _, id := range []string{"ig_1", "ig_2"} {
		require.NoError(t, f.store.Upsert(ctx, &domain.TokenBundleInput{
			InternalUserID:    "user-1",
			ExternalAccountID: id,
			UserAccessToken:   "tok-" + id,
			IsConnected:       true,
		}))
	}

	status, err := f.svc.Status(ctx, domain.Principal{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "ig_2", *status.ExternalAccountID)
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture()

	// No bundle is a no-op
	require.NoError(t, f.svc.Disconnect(ctx, domain.Principal{UserID: "user-1"}))

	require.NoError(t, f.store.Upsert(ctx, &domain.TokenBundleInput{
		InternalUserID:    "user-1",
		ExternalAccountID: "ig_42",
		UserAccessToken:   "l1",
		PageAccessToken:   "pt_1",
		IsConnected:       true,
	}))
	require.NoError(t, f.svc.Disconnect(ctx, domain.Principal{UserID: "user-1"}))

	bundle, err := f.store.FindByExternalID(ctx, "ig_42")
	require.NoError(t, err)
	assert.False(t, bundle.IsConnected)
	assert.Empty(t, bundle.UserAccessToken)
	assert.Empty(t, bundle.PageAccessToken)
	assert.Equal(t, "user-1", bundle.InternalUserID)

	status, err := f.svc.Status(ctx, domain.Principal{UserID: "user-1"})
	require.NoError(t, err)
	assert.False(t, status.Connected)
}

func TestDisconnect_ClearsEveryBundleOfUser(t *testing.T) {
	ctx := context.Background()
	f := newConnectionFixture()

	expires := fixedNow.Add(24 * time.Hour)
	for _, id := range []string{"ig_A", "ig_B"} {
		require.NoError(t, f.store.Upsert(ctx, &domain.TokenBundleInput{
			InternalUserID:    "user-1",
			ExternalAccountID: id,
			UserAccessToken:   "tok-" + id,
			PageAccessToken:   "pt-" + id,
			ExpiresAt:         &expires,
			IsConnected:       true,
		}))
	}
	seedExpiring(t, f.store, "ig_other", "tok-other", time.Hour)

	require.NoError(t, f.svc.Disconnect(ctx, domain.Principal{UserID: "user-1"}))

	for _, id := range []string{"ig_A", "ig_B"} {
		bundle, err := f.store.FindByExternalID(ctx, id)
		require.NoError(t, err)
		assert.False(t, bundle.IsConnected, id)
		assert.Empty(t, bundle.UserAccessToken, id)
		assert.Empty(t, bundle.PageAccessToken, id)
	}

	renewed := fixedNow.Add(60 * 24 * time.Hour)
	f.provider.On("Refresh", mock.Anything, "tok-other").
		Return(&domain.LongToken{AccessToken: "tok-other-2", ExpiresAt: &renewed}, nil)
	count, err := newTestRefresher(f.provider, f.store, nil).RefreshDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	f.provider.AssertNotCalled(t, "Refresh", mock.Anything, "tok-ig_A")

	status, err := f.svc.Status(ctx, domain.Principal{UserID: "user-1"})
	require.NoError(t, err)
	assert.False(t, status.Connected)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *connectionFixture) {
		old := fixedNow.Add(24 * time.Hour)
		require.NoError(t, f.store.Upsert(ctx, &domain.TokenBundleInput{
			InternalUserID:    "user-1",
			ExternalAccountID: "ig_42",
			UserAccessToken:   "l1",
			PageAccessToken:   "pt_1",
			ExpiresAt:         &old,
			IsConnected:       true,
		}))
	}

	t.Run("success", func(t *testing.T) {
		f := newConnectionFixture()
		seed(t, f)
		expires := fixedNow.Add(60 * 24 * time.Hour)
		f.provider.On("Refresh", mock.Anything, "l1").Return(&domain.LongToken{AccessToken: "l2", ExpiresAt: &expires}, nil)

		status, err := f.svc.Refresh(ctx, domain.Principal{UserID: "user-1"})
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.True(t, status.ExpiresAt.Equal(expires))

		bundle, _ := f.store.FindByExternalID(ctx, "ig_42")
		assert.Equal(t, "l2", bundle.UserAccessToken)
		assert.Equal(t, "pt_1", bundle.PageAccessToken)
	})

	t.Run("invalidated", func(t *testing.T) {
		f := newConnectionFixture()
		seed(t, f)
		f.provider.On("Refresh", mock.Anything, "l1").Return(nil, &domain.ProviderError{Op: "refresh", Code: 190})

		_, err := f.svc.Refresh(ctx, domain.Principal{UserID: "user-1"})
		assert.ErrorIs(t, err, domain.ErrTokenInvalidated)

		status, _ := f.svc.Status(ctx, domain.Principal{UserID: "user-1"})
		assert.False(t, status.Connected)
	})

	t.Run("not connected", func(t *testing.T) {
		f := newConnectionFixture()
		_, err := f.svc.Refresh(ctx, domain.Principal{UserID: "user-1"})
		assert.ErrorIs(t, err, domain.ErrNotConnected)
	})
}
