package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driving"
)

// Ensure loginService implements LoginService
var _ driving.LoginService = (*loginService)(nil)

// loginService drives code → short token → long token → discovery → persist.
type loginService struct {
	provider  driven.InstagramProvider
	store     driven.TokenStore
	scopes    []string
	telemetry driven.Telemetry
	logger    *slog.Logger
	now       func() time.Time
}

// LoginServiceConfig holds dependencies for the login service.
type LoginServiceConfig struct {
	Provider  driven.InstagramProvider
	Store     driven.TokenStore
	Scopes    []string // Requested scopes, recorded on the bundle
	Telemetry driven.Telemetry
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewLoginService creates a new LoginService.
func NewLoginService(cfg LoginServiceConfig) driving.LoginService {
	s := &loginService{
		provider:  cfg.Provider,
		store:     cfg.Store,
		scopes:    cfg.Scopes,
		telemetry: cfg.Telemetry,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if s.telemetry == nil {
		s.telemetry = driven.NopTelemetry{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CompleteLogin runs the login state machine. The store is written once,
// after every provider step has succeeded.
func (s *loginService) CompleteLogin(ctx context.Context, principal domain.Principal, code string) (*domain.LoginResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: authorization code is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	stage := domain.StageCodeReceived
	fail := func(err error) (*domain.LoginResult, error) {
		s.telemetry.LoginCompleted(string(stage))
		s.logger.Warn("instagram login failed",
			"user_id", principal.UserID,
			"stage", stage,
			"error", err,
		)
		return nil, &domain.LoginError{Stage: stage, Err: err}
	}

	short, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return fail(err)
	}
	stage = domain.StageShortTokenAcquired

	long, err := s.provider.ExchangeLongLived(ctx, short.AccessToken)
	if err != nil {
		return fail(err)
	}
	stage = domain.StageLongTokenAcquired

	identity, err := s.provider.DiscoverBusinessAccount(ctx, long.AccessToken)
	if err != nil {
		return fail(err)
	}
	stage = domain.StageAccountDiscovered

	now := s.now()
	input := &domain.TokenBundleInput{
		InternalUserID:    principal.UserID,
		ExternalAccountID: identity.ExternalAccountID,
		UserAccessToken:   long.AccessToken,
		PageAccessToken:   identity.PageAccessToken,
		LinkedPageID:      identity.LinkedPageID,
		DisplayName:       identity.DisplayName,
		AccountKind:       identity.AccountKind,
		ExpiresAt:         long.ExpiresAt,
		GrantedScopes:     s.scopes,
		IsConnected:       true,
		LastRefreshedAt:   now,
	}
	if err := s.store.Upsert(ctx, input); err != nil {
		return fail(err)
	}
	stage = domain.StagePersisted

	result := &domain.LoginResult{
		ExternalAccountID: identity.ExternalAccountID,
		DisplayName:       identity.DisplayName,
		LinkedPageID:      identity.LinkedPageID,
		ExpiresAt:         long.ExpiresAt,
	}
	if identity.PageAccessToken != "" {
		result.AccessToken, result.TokenSource = identity.PageAccessToken, domain.TokenSourcePage
	} else {
		result.AccessToken, result.TokenSource = long.AccessToken, domain.TokenSourceUser
	}

	s.telemetry.LoginCompleted("success")
	s.logger.Info("instagram account connected",
		"user_id", principal.UserID,
		"external_account_id", identity.ExternalAccountID,
		"token_source", result.TokenSource,
	)
	return result, nil
}
