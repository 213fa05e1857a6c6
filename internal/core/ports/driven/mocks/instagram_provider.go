package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Ensure the mocks implement the provider ports
var (
	_ driven.InstagramProvider = (*MockInstagramProvider)(nil)
	_ driven.InsightsProvider  = (*MockInsightsProvider)(nil)
)

// MockInstagramProvider is a testify mock of InstagramProvider
type MockInstagramProvider struct {
	mock.Mock
}

func (m *MockInstagramProvider) AuthorizationURL(state string) string {
	return "https://www.facebook.com/dialog/oauth?state=" + state
}

func (m *MockInstagramProvider) ExchangeCode(ctx context.Context, code string) (*domain.ShortToken, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortToken), args.Error(1)
}

func (m *MockInstagramProvider) ExchangeLongLived(ctx context.Context, shortToken string) (*domain.LongToken, error) {
	args := m.Called(ctx, shortToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LongToken), args.Error(1)
}

func (m *MockInstagramProvider) DiscoverBusinessAccount(ctx context.Context, userToken string) (*domain.AccountIdentity, error) {
	args := m.Called(ctx, userToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountIdentity), args.Error(1)
}

func (m *MockInstagramProvider) Refresh(ctx context.Context, longToken string) (*domain.LongToken, error) {
	args := m.Called(ctx, longToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LongToken), args.Error(1)
}

// MockInsightsProvider is a testify mock of InsightsProvider
type MockInsightsProvider struct {
	mock.Mock
}

func (m *MockInsightsProvider) Profile(ctx context.Context, accountID, token string) (*domain.AccountProfile, error) {
	args := m.Called(ctx, accountID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountProfile), args.Error(1)
}

func (m *MockInsightsProvider) DailyInsights(ctx context.Context, accountID, token string, metrics []string, metricType string, since, until time.Time) (map[string]domain.DailyValues, error) {
	args := m.Called(ctx, accountID, token, metrics, metricType, since, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.DailyValues), args.Error(1)
}
