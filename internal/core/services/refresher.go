package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

const refresherLockName = "instagram-token-refresher"

// TokenRefresher periodically re-exchanges long-lived tokens that are close
// to expiry.
//
// For multi-instance deployments, configure a DistributedLock so only one
// instance refreshes per cycle.
type TokenRefresher struct {
	provider  driven.InstagramProvider
	store     driven.TokenStore
	lock      driven.DistributedLock
	telemetry driven.Telemetry
	logger    *slog.Logger
	now       func() time.Time

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	interval    time.Duration
	window      time.Duration
	lockTTL     time.Duration
	batchSize   int
	extendEvery int
}

// TokenRefresherConfig holds configuration for the refresher.
type TokenRefresherConfig struct {
	Provider  driven.InstagramProvider
	Store     driven.TokenStore
	Lock      driven.DistributedLock // Optional: nil runs unguarded
	Telemetry driven.Telemetry
	Logger    *slog.Logger
	Now       func() time.Time
	Interval  time.Duration // How often to look for expiring tokens (default: 1h)
	Window    time.Duration // Refresh tokens expiring within this window (default: 7d)
	LockTTL   time.Duration // TTL for the distributed lock (default: 5m)
	BatchSize int           // Bundles per cycle (default: 100)

	// ExtendEvery is how many bundles are refreshed between lock renewals
	// (default: 10).
	ExtendEvery int
}

// NewTokenRefresher creates a new refresher.
func NewTokenRefresher(cfg TokenRefresherConfig) *TokenRefresher {
	r := &TokenRefresher{
		provider:    cfg.Provider,
		store:       cfg.Store,
		lock:        cfg.Lock,
		telemetry:   cfg.Telemetry,
		logger:      cfg.Logger,
		now:         cfg.Now,
		interval:    cfg.Interval,
		window:      cfg.Window,
		lockTTL:     cfg.LockTTL,
		batchSize:   cfg.BatchSize,
		extendEvery: cfg.ExtendEvery,
	}
	if r.telemetry == nil {
		r.telemetry = driven.NopTelemetry{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.interval == 0 {
		r.interval = time.Hour
	}
	if r.window == 0 {
		r.window = 7 * 24 * time.Hour
	}
	if r.lockTTL == 0 {
		r.lockTTL = 5 * time.Minute
	}
	if r.batchSize == 0 {
		r.batchSize = 100
	}
	if r.extendEvery <= 0 {
		r.extendEvery = 10
	}
	return r
}

// Start begins the refresh loop.
// It runs until Stop is called or context is cancelled.
func (r *TokenRefresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	r.logger.Info("token refresher starting", "interval", r.interval, "window", r.window)

	go r.run(ctx)

	return nil
}

// Stop gracefully stops the refresher.
func (r *TokenRefresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	r.mu.Unlock()

	<-r.doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.logger.Info("token refresher stopped")
}

// IsRunning returns whether the refresher loop is active.
func (r *TokenRefresher) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *TokenRefresher) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on start
	r.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("token refresher context cancelled")
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

func (r *TokenRefresher) cycle(ctx context.Context) {
	var renew func(context.Context) error
	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx, refresherLockName, r.lockTTL)
		if err != nil {
			r.logger.Warn("failed to acquire refresher lock", "error", err)
			return
		}
		if !acquired {
			r.logger.Debug("refresher lock held by another instance, skipping cycle")
			return
		}
		defer func() {
			if err := r.lock.Release(ctx, refresherLockName); err != nil {
				r.logger.Warn("failed to release refresher lock", "error", err)
			}
		}()
		renew = func(ctx context.Context) error {
			return r.lock.Extend(ctx, refresherLockName, r.lockTTL)
		}
	}

	if _, err := r.refreshDue(ctx, renew); err != nil {
		if errors.Is(err, domain.ErrLockNotHeld) {
			r.logger.Warn("refresher lock lost, ending cycle early", "error", err)
			return
		}
		r.logger.Error("token refresh cycle failed", "error", err)
	}
}

// RefreshDue refreshes every connected bundle whose user token expires within
// the window. Per-bundle failures are logged and skipped. It returns the number
// of bundles refreshed.
func (r *TokenRefresher) RefreshDue(ctx context.Context) (int, error) {
	return r.refreshDue(ctx, nil)
}

// refreshDue calls renew every extendEvery bundles and stops as soon as it
// fails, so a cycle never outlives its lock.
func (r *TokenRefresher) refreshDue(ctx context.Context, renew func(context.Context) error) (int, error) {
	now := r.now()
	bundles, err := r.store.ListRefreshable(ctx, now.Add(r.window), r.batchSize)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for i, bundle := range bundles {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		if renew != nil && i > 0 && i%r.extendEvery == 0 {
			if err := renew(ctx); err != nil {
				return refreshed, err
			}
		}
		if _, err := refreshBundle(ctx, r.provider, r.store, bundle, now); err != nil {
			if errors.Is(err, domain.ErrTokenInvalidated) {
				r.telemetry.TokenInvalidated("refresher")
				r.telemetry.TokenRefreshed("invalidated")
				r.logger.Warn("instagram token invalidated during refresh",
					"external_account_id", bundle.ExternalAccountID,
				)
				continue
			}
			r.telemetry.TokenRefreshed("error")
			r.logger.Error("instagram token refresh failed",
				"external_account_id", bundle.ExternalAccountID,
				"error", err,
			)
			continue
		}
		r.telemetry.TokenRefreshed("success")
		refreshed++
	}

	if refreshed > 0 {
		r.logger.Info("refreshed instagram tokens", "count", refreshed)
	}
	return refreshed, nil
}

// refreshBundle re-exchanges the bundle's user token and stores the result.
// The page token is left untouched. A rejected token clears the bundle.
func refreshBundle(ctx context.Context, provider driven.InstagramProvider, store driven.TokenStore, bundle *domain.TokenBundle, now time.Time) (*domain.TokenBundle, error) {
	long, err := provider.Refresh(ctx, bundle.UserAccessToken)
	if err != nil {
		return nil, invalidateOnError(ctx, store, bundle, err)
	}

	input := &domain.TokenBundleInput{
		InternalUserID:    bundle.InternalUserID,
		ExternalAccountID: bundle.ExternalAccountID,
		UserAccessToken:   long.AccessToken,
		ExpiresAt:         long.ExpiresAt,
		IsConnected:       true,
		LastRefreshedAt:   now,
	}
	if err := store.Upsert(ctx, input); err != nil {
		return nil, err
	}
	return store.FindByExternalID(ctx, bundle.ExternalAccountID)
}
