package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driving"
)

// Ensure connectionService implements ConnectionService
var _ driving.ConnectionService = (*connectionService)(nil)

const (
	defaultPendingLoginTTL = 10 * time.Minute
	defaultReturnPath      = "/settings"
)

// connectionService implements the ConnectionService interface
type connectionService struct {
	provider          driven.InstagramProvider
	store             driven.TokenStore
	signer            driven.StateSigner
	pending           driven.PendingLoginStore
	login             driving.LoginService
	telemetry         driven.Telemetry
	logger            *slog.Logger
	now               func() time.Time
	pendingTTL        time.Duration
	defaultReturnPath string
}

// ConnectionServiceConfig holds dependencies for the connection service.
type ConnectionServiceConfig struct {
	Provider          driven.InstagramProvider
	Store             driven.TokenStore
	Signer            driven.StateSigner
	PendingLogins     driven.PendingLoginStore
	Login             driving.LoginService
	Telemetry         driven.Telemetry
	Logger            *slog.Logger
	Now               func() time.Time
	PendingLoginTTL   time.Duration // default: 10m
	DefaultReturnPath string        // default: /settings
}

// NewConnectionService creates a new ConnectionService.
func NewConnectionService(cfg ConnectionServiceConfig) driving.ConnectionService {
	s := &connectionService{
		provider:          cfg.Provider,
		store:             cfg.Store,
		signer:            cfg.Signer,
		pending:           cfg.PendingLogins,
		login:             cfg.Login,
		telemetry:         cfg.Telemetry,
		logger:            cfg.Logger,
		now:               cfg.Now,
		pendingTTL:        cfg.PendingLoginTTL,
		defaultReturnPath: cfg.DefaultReturnPath,
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
	if s.pendingTTL == 0 {
		s.pendingTTL = defaultPendingLoginTTL
	}
	if s.defaultReturnPath == "" {
		s.defaultReturnPath = defaultReturnPath
	}
	return s
}

// StartLogin issues a signed pending login bound to the caller.
func (s *connectionService) StartLogin(ctx context.Context, principal domain.Principal, req driving.StartLoginRequest) (*driving.StartLoginResponse, error) {
	if principal.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	now := s.now()
	state := &domain.PendingLoginState{
		UserID:     principal.UserID,
		ReturnPath: domain.SafeReturnPath(req.ReturnPath, s.defaultReturnPath),
		Nonce:      uuid.NewString(),
		IssuedAt:   now.UnixMilli(),
	}

	payload, err := state.Encode()
	if err != nil {
		return nil, err
	}
	signed := s.signer.Sign(payload)

	if err := s.pending.Save(ctx, state.Nonce, state.UserID, s.pendingTTL); err != nil {
		return nil, fmt.Errorf("save pending login: %w", err)
	}

	return &driving.StartLoginResponse{
		URL:       s.provider.AuthorizationURL(signed),
		State:     signed,
		ExpiresAt: now.Add(s.pendingTTL).UTC(),
	}, nil
}

// Callback resolves the pending login, cookie first, and completes the login.
func (s *connectionService) Callback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: code is required", domain.ErrInvalidInput)
	}

	pending, err := s.resolvePending(ctx, req.CookieState, req.State)
	if err != nil {
		return nil, err
	}

	result, err := s.login.CompleteLogin(ctx, domain.Principal{UserID: pending.UserID}, req.Code)
	if err != nil {
		return nil, err
	}

	return &driving.CallbackResponse{
		ReturnPath: domain.SafeReturnPath(pending.ReturnPath, s.defaultReturnPath),
		Result:     result,
	}, nil
}

// resolvePending returns the first candidate that verifies, is within its
// TTL, and whose nonce has not been consumed yet.
func (s *connectionService) resolvePending(ctx context.Context, candidates ...string) (*domain.PendingLoginState, error) {
	now := s.now()
	for _, raw := range candidates {
		if raw == "" {
			continue
		}
		payload, ok := s.signer.Verify(raw)
		if !ok {
			continue
		}
		pending, err := domain.DecodePendingLoginState(payload)
		if err != nil || pending.IsExpired(now, s.pendingTTL) {
			continue
		}
		consumed, err := s.pending.Consume(ctx, pending.Nonce)
		if err != nil {
			return nil, fmt.Errorf("consume pending login: %w", err)
		}
		if !consumed {
			s.logger.Warn("pending login replayed or expired", "user_id", pending.UserID)
			continue
		}
		return pending, nil
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, domain.ErrPendingLoginInvalid)
}

// Status reports the stored connection state.
func (s *connectionService) Status(ctx context.Context, principal domain.Principal) (*domain.ConnectionStatus, error) {
	if principal.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	bundle, err := s.store.FindByInternalUserID(ctx, principal.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ConnectionStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	return bundle.ToStatus(), nil
}

// Disconnect clears every bundle the caller owns. It is a no-op without one.
func (s *connectionService) Disconnect(ctx context.Context, principal domain.Principal) error {
	if principal.UserID == "" {
		return domain.ErrUnauthorized
	}
	cleared, err := s.store.ClearByInternalUserID(ctx, principal.UserID)
	if err != nil {
		return err
	}
	if cleared > 0 {
		s.logger.Info("instagram account disconnected",
			"user_id", principal.UserID,
			"bundles", cleared,
		)
	}
	return nil
}

// Refresh re-exchanges the caller's long-lived token now.
func (s *connectionService) Refresh(ctx context.Context, principal domain.Principal) (*domain.ConnectionStatus, error) {
	if principal.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	bundle, err := s.store.FindByInternalUserID(ctx, principal.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	if !bundle.Connected() || bundle.UserAccessToken == "" {
		return nil, domain.ErrNotConnected
	}

	refreshed, err := refreshBundle(ctx, s.provider, s.store, bundle, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalidated) {
			s.telemetry.TokenInvalidated("refresh")
			s.telemetry.TokenRefreshed("invalidated")
		} else {
			s.telemetry.TokenRefreshed("error")
		}
		return nil, err
	}
	s.telemetry.TokenRefreshed("success")
	return refreshed.ToStatus(), nil
}
