package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven/mocks"
)

func seedConnectedBundle(t *testing.T, store *mocks.MockTokenStore) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), &domain.TokenBundleInput{
		InternalUserID:    "user-1",
		ExternalAccountID: "ig_42",
		DisplayName:       "acme",
		UserAccessToken:   "l1",
		PageAccessToken:   "pt_1",
		IsConnected:       true,
	}))
}

func TestMetrics_BuildsReport(t *testing.T) {
	store := mocks.NewMockTokenStore()
	insights := &mocks.MockInsightsProvider{}
	svc := NewMetricsService(store, insights, nil, nil)
	seedConnectedBundle(t, store)

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 3, 23, 59, 59, 0, time.UTC)

	insights.On("Profile", mock.Anything, "ig_42", "pt_1").
		Return(&domain.AccountProfile{ID: "ig_42", Username: "acme", FollowersCount: 1000}, nil)
	insights.On("DailyInsights", mock.Anything, "ig_42", "pt_1", []string{"reach"}, "", since, until).
		Return(map[string]domain.DailyValues{
			"reach": {"2024-01-01": 10, "2024-01-02": 0, "2024-01-03": 5},
		}, nil)
	insights.On("DailyInsights", mock.Anything, "ig_42", "pt_1", []string{"profile_views", "total_interactions"}, "total_value", since, until).
		Return(map[string]domain.DailyValues{}, nil)

	report, err := svc.Metrics(context.Background(), domain.Principal{UserID: "user-1"}, "2024-01-01", "2024-01-03")
	require.NoError(t, err)

	require.Len(t, report.Timeseries, 3)
	for _, day := range report.Timeseries {
		assert.Zero(t, day.EngagementRate, day.Date)
		assert.Equal(t, int64(1000), day.Followers)
	}
	assert.Equal(t, int64(15), report.KPIs.Reach)
	assert.Equal(t, int64(1000), report.KPIs.Followers)
	assert.Equal(t, "ig_42", report.Account.ExternalAccountID)
	assert.Equal(t, "acme", report.Account.Username)

	insights.AssertExpectations(t)
}

func TestMetrics_InvalidTokenClearsBundle(t *testing.T) {
	store := mocks.NewMockTokenStore()
	insights := &mocks.MockInsightsProvider{}
	svc := NewMetricsService(store, insights, nil, nil)
	seedConnectedBundle(t, store)

	rejected := &domain.ProviderError{Op: "profile", StatusCode: 400, Code: 190, Message: "Error validating access token"}
	insights.On("Profile", mock.Anything, "ig_42", "pt_1").Return(nil, rejected)
	insights.On("DailyInsights", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, rejected)

	_, err := svc.Metrics(context.Background(), domain.Principal{UserID: "user-1"}, "2024-01-01", "2024-01-03")
	assert.ErrorIs(t, err, domain.ErrTokenInvalidated)

	bundle, err := store.FindByExternalID(context.Background(), "ig_42")
	require.NoError(t, err)
	assert.False(t, bundle.IsConnected)
	assert.False(t, bundle.HasUsableToken())
	assert.False(t, bundle.ToStatus().Connected)
}

func TestMetrics_TransientErrorKeepsBundle(t *testing.T) {
	store := mocks.NewMockTokenStore()
	insights := &mocks.MockInsightsProvider{}
	svc := NewMetricsService(store, insights, nil, nil)
	seedConnectedBundle(t, store)

	upstream := &domain.ProviderError{Op: "insights", StatusCode: 500, Message: "An unexpected error has occurred"}
	insights.On("Profile", mock.Anything, mock.Anything, mock.Anything).Return(nil, upstream)
	insights.On("DailyInsights", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, upstream)

	_, err := svc.Metrics(context.Background(), domain.Principal{UserID: "user-1"}, "2024-01-01", "2024-01-03")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrTokenInvalidated)
	assert.Equal(t, 0, store.ClearCalls)

	bundle, _ := store.FindByExternalID(context.Background(), "ig_42")
	assert.True(t, bundle.IsConnected)
}

func TestMetrics_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		seed    bool
		userID  string
		from    string
		to      string
		wantErr error
	}{
		{"missing dates", true, "user-1", "", "", domain.ErrInvalidInput},
		{"bad date", true, "user-1", "2024-13-01", "2024-01-03", domain.ErrInvalidInput},
		{"no bundle", false, "user-1", "2024-01-01", "2024-01-03", domain.ErrNotConnected},
		{"unauthenticated", true, "", "2024-01-01", "2024-01-03", domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockTokenStore()
			insights := &mocks.MockInsightsProvider{}
			svc := NewMetricsService(store, insights, nil, nil)
			if tt.seed {
				seedConnectedBundle(t, store)
			}

			_, err := svc.Metrics(context.Background(), domain.Principal{UserID: tt.userID}, tt.from, tt.to)
			assert.ErrorIs(t, err, tt.wantErr)
			insights.AssertNotCalled(t, "Profile", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestMetrics_DisconnectedBundle(t *testing.T) {
	store := mocks.NewMockTokenStore()
	svc := NewMetricsService(store, &mocks.MockInsightsProvider{}, nil, nil)
	seedConnectedBundle(t, store)

	bundle, _ := store.FindByExternalID(context.Background(), "ig_42")
	require.NoError(t, store.Clear(context.Background(), bundle.ID))

	_, err := svc.Metrics(context.Background(), domain.Principal{UserID: "user-1"}, "2024-01-01", "2024-01-03")
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}
