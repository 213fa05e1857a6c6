package services

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driving"
)

// Ensure metricsService implements MetricsService
var _ driving.MetricsService = (*metricsService)(nil)

// metricsService implements the MetricsService interface
type metricsService struct {
	store     driven.TokenStore
	insights  driven.InsightsProvider
	telemetry driven.Telemetry
	logger    *slog.Logger
}

// NewMetricsService creates a new MetricsService.
func NewMetricsService(store driven.TokenStore, insights driven.InsightsProvider, telemetry driven.Telemetry, logger *slog.Logger) driving.MetricsService {
	if telemetry == nil {
		telemetry = driven.NopTelemetry{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &metricsService{
		store:     store,
		insights:  insights,
		telemetry: telemetry,
		logger:    logger,
	}
}

// Metrics fetches the profile and daily insights concurrently and builds the
// report. A rejected token clears the bundle before the error is returned.
func (s *metricsService) Metrics(ctx context.Context, principal domain.Principal, from, to string) (*domain.MetricsReport, error) {
	if principal.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	dateRange, err := domain.ParseDateRange(from, to)
	if err != nil {
		return nil, err
	}

	bundle, err := s.store.FindByInternalUserID(ctx, principal.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	if !bundle.Connected() || bundle.ExternalAccountID == "" {
		return nil, domain.ErrNotConnected
	}

	token, _ := bundle.AuthoritativeToken()
	accountID := bundle.ExternalAccountID
	since, until := dateRange.Since(), dateRange.Until()

	var (
		profile *domain.AccountProfile
		reach   map[string]domain.DailyValues
		totals  map[string]domain.DailyValues
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.insights.Profile(gctx, accountID, token)
		return err
	})
	g.Go(func() error {
		var err error
		reach, err = s.insights.DailyInsights(gctx, accountID, token,
			[]string{domain.MetricReach}, "", since, until)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.insights.DailyInsights(gctx, accountID, token,
			[]string{domain.MetricProfileViews, domain.MetricTotalInteractions}, "total_value", since, until)
		return err
	})

	if err := g.Wait(); err != nil {
		if IsTokenInvalid(err) {
			s.telemetry.TokenInvalidated("metrics")
			s.logger.Warn("instagram token rejected, disconnecting",
				"user_id", principal.UserID,
				"external_account_id", accountID,
				"error", err,
			)
		}
		return nil, invalidateOnError(ctx, s.store, bundle, err)
	}

	insights := &domain.AccountInsights{
		Reach:             reach[domain.MetricReach],
		ProfileViews:      totals[domain.MetricProfileViews],
		TotalInteractions: totals[domain.MetricTotalInteractions],
	}
	account := domain.MetricsAccount{
		ExternalAccountID: accountID,
		Username:          bundle.DisplayName,
	}
	return domain.BuildMetricsReport(dateRange, account, profile, insights), nil
}
