package driven

import (
	"context"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

// UserStore handles user persistence
type UserStore interface {
	// Create inserts a new user. Returns domain.ErrAlreadyExists when the
	// email or user name is taken.
	Create(ctx context.Context, user *domain.User) error

	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*domain.User, error)

	// GetByLogin retrieves a user by email or user name
	GetByLogin(ctx context.Context, emailOrUserName string) (*domain.User, error)

	// Exists reports whether the email or user name is already registered
	Exists(ctx context.Context, email, userName string) (bool, error)
}
