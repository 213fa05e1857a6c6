package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

// LoginService completes an Instagram login. It runs the code exchange,
// long-lived upgrade and account discovery, then persists the bundle once.
type LoginService interface {
	// CompleteLogin returns domain.ErrInvalidInput for an empty code or user,
	// and *domain.LoginError for any failure after that. Nothing is stored
	// unless every step succeeds.
	CompleteLogin(ctx context.Context, principal domain.Principal, code string) (*domain.LoginResult, error)
}

// ConnectionService manages the lifecycle of a user's Instagram connection.
type ConnectionService interface {
	// StartLogin issues a signed pending login and the authorization URL.
	StartLogin(ctx context.Context, principal domain.Principal, req StartLoginRequest) (*StartLoginResponse, error)

	// Callback resolves the pending login from the cookie or state, consumes
	// it, and completes the login. Unresolvable callers get domain.ErrUnauthorized.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResponse, error)

	// Status reports the stored connection state. It never calls the provider.
	Status(ctx context.Context, principal domain.Principal) (*domain.ConnectionStatus, error)

	// Disconnect clears every bundle the caller owns.
	Disconnect(ctx context.Context, principal domain.Principal) error

	// Refresh re-exchanges the caller's long-lived token now.
	Refresh(ctx context.Context, principal domain.Principal) (*domain.ConnectionStatus, error)
}

// MetricsService builds the insights report for a connected account.
type MetricsService interface {
	// Metrics returns domain.ErrNotConnected without a usable bundle and
	// domain.ErrTokenInvalidated after clearing a bundle whose token was rejected.
	Metrics(ctx context.Context, principal domain.Principal, from, to string) (*domain.MetricsReport, error)
}

// StartLoginRequest represents a request to start the Instagram login.
// @Description Request to start Instagram login
type StartLoginRequest struct {
	// ReturnPath is where the browser returns after the callback.
	ReturnPath string `json:"returnTo,omitempty" example:"/settings"`
}

// StartLoginResponse contains the authorization URL and signed state.
// @Description Instagram authorization URL and signed state
type StartLoginResponse struct {
	URL       string    `json:"url" example:"https://www.facebook.com/v21.0/dialog/oauth?client_id=..."`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CallbackRequest carries the provider redirect parameters and the pending login cookie.
type CallbackRequest struct {
	Code        string
	State       string
	CookieState string
}

// CallbackResponse is the outcome of a completed callback.
type CallbackResponse struct {
	ReturnPath string
	Result     *domain.LoginResult
}
