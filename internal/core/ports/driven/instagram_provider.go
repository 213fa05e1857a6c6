package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

// InstagramProvider wraps the Facebook Graph OAuth calls.
// Every failure is returned as *domain.ProviderError, except the
// discovery outcomes domain.ErrNoPages and domain.ErrNoLinkedAccount.
type InstagramProvider interface {
	// AuthorizationURL builds the consent URL carrying the opaque state.
	AuthorizationURL(state string) string

	// ExchangeCode exchanges an authorization code for a short-lived token.
	ExchangeCode(ctx context.Context, code string) (*domain.ShortToken, error)

	// ExchangeLongLived upgrades a short-lived token.
	ExchangeLongLived(ctx context.Context, shortToken string) (*domain.LongToken, error)

	// DiscoverBusinessAccount finds the first page, in provider order, with a
	// linked Instagram business account.
	DiscoverBusinessAccount(ctx context.Context, userToken string) (*domain.AccountIdentity, error)

	// Refresh re-exchanges a long-lived token for a new one.
	Refresh(ctx context.Context, longToken string) (*domain.LongToken, error)
}

// InsightsProvider reads account profile and insight metrics.
type InsightsProvider interface {
	// Profile fetches followers_count and username.
	Profile(ctx context.Context, accountID, token string) (*domain.AccountProfile, error)

	// DailyInsights fetches daily values for the given metrics between since
	// and until. metricType is empty or "total_value". The result is keyed by
	// metric name, then by day.
	DailyInsights(ctx context.Context, accountID, token string, metrics []string, metricType string, since, until time.Time) (map[string]domain.DailyValues, error)
}
