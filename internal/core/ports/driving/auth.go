package driving

import (
	"context"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

// AuthService handles application user registration and authentication
type AuthService interface {
	// Register creates a user and signs them in
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.LoginResponse, error)

	// Authenticate validates credentials and creates a session
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// RefreshToken rotates the session behind a valid refresh token
	RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)

	// Logout invalidates a session
	Logout(ctx context.Context, sessionID string) error

	// CurrentUser returns the profile of the authenticated user
	CurrentUser(ctx context.Context, principal domain.Principal) (*domain.UserSummary, error)
}
