package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.UserStore = (*UserStore)(nil)

const userColumns = `id, email, user_name, name, password_hash, created_at, updated_at`

// UserStore implements driven.UserStore
type UserStore struct {
	db *DB
}

// NewUserStore creates a new UserStore
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

type userRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	UserName     sql.NullString `db:"user_name"`
	Name         string         `db:"name"`
	PasswordHash string         `db:"password_hash"`
	CreatedAt    int64          `db:"created_at"`
	UpdatedAt    int64          `db:"updated_at"`
}

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		UserName:     r.UserName.String,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}

// Create inserts a user
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, s.db.Rebind(query),
		user.ID,
		user.Email,
		nullString(user.UserName),
		user.Name,
		user.PasswordHash,
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email or user name already registered", domain.ErrAlreadyExists)
	}
	return persistenceError("create user", err)
}

// Get retrieves a user by ID
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.getOne(ctx, "get user", query, id)
}

// GetByLogin retrieves a user by email, or by user name ignoring case
func (s *UserStore) GetByLogin(ctx context.Context, emailOrUserName string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = ? OR LOWER(user_name) = LOWER(?)
		LIMIT 1
	`
	return s.getOne(ctx, "get user by login", query, emailOrUserName, emailOrUserName)
}

// Exists reports whether the email or user name is taken
func (s *UserStore) Exists(ctx context.Context, email, userName string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM users
		WHERE email = ? OR (? <> '' AND LOWER(user_name) = LOWER(?))
	`

	var count int
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(query), email, userName, userName); err != nil {
		return false, persistenceError("check user exists", err)
	}
	return count > 0, nil
}

func (s *UserStore) getOne(ctx context.Context, op, query string, args ...any) (*domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, persistenceError(op, err)
	}
	return row.toDomain(), nil
}
