package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

// TokenStore persists Instagram token bundles. Upsert, Clear and
// ClearByInternalUserID are the only mutations.
type TokenStore interface {
	// Upsert creates or updates the bundle keyed by ExternalAccountID.
	// Empty optional fields in the input leave stored values untouched.
	// Returns domain.ErrMissingRequiredField when the input has no external
	// account id or no token.
	Upsert(ctx context.Context, input *domain.TokenBundleInput) error

	// FindByExternalID retrieves a bundle by Instagram account id.
	// Returns domain.ErrNotFound when missing.
	FindByExternalID(ctx context.Context, externalAccountID string) (*domain.TokenBundle, error)

	// FindByInternalUserID retrieves the most recently updated bundle for a user.
	// Returns domain.ErrNotFound when the user has none.
	FindByInternalUserID(ctx context.Context, userID string) (*domain.TokenBundle, error)

	// Clear disconnects a bundle and nulls its tokens, expiry, scopes and page id.
	// The row is kept.
	Clear(ctx context.Context, bundleID string) error

	// ClearByInternalUserID clears every bundle the user owns in one statement
	// and returns how many rows it touched. Zero rows is not an error.
	ClearByInternalUserID(ctx context.Context, userID string) (int64, error)

	// ListRefreshable returns connected bundles with a user token expiring before the given time.
	ListRefreshable(ctx context.Context, before time.Time, limit int) ([]*domain.TokenBundle, error)
}
