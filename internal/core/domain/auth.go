package domain

import "time"

// Session represents an authenticated user session
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// AuthContext contains authenticated user info for request context
type AuthContext struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
}

// Principal returns the explicit caller identity passed into services
func (a *AuthContext) Principal() Principal {
	return Principal{UserID: a.UserID, Email: a.Email}
}

// Principal is the authenticated caller threaded through service calls
type Principal struct {
	UserID string
	Email  string
}

// RegisterRequest represents a sign-up attempt
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254" example:"ana@example.com"`
	UserName string `json:"userName" validate:"omitempty,min=3,max=32,alphanum" example:"ana"`
	Name     string `json:"name" validate:"required,max=120" example:"Ana Souza"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	EmailOrUserName string `json:"emailOrUserName" validate:"required" example:"ana@example.com"`
	Password        string `json:"password" validate:"required"`
}

// LoginResponse is returned after successful authentication
type LoginResponse struct {
	AccessToken  string       `json:"accessToken"`
	ExpiresUTC   time.Time    `json:"expiresUtc"`
	RefreshToken string       `json:"refreshToken"`
	User         *UserSummary `json:"user"`
}

// RefreshRequest represents a token refresh attempt
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	UserID    string `json:"sub"`
	Email     string `json:"email"`
	SessionID string `json:"sid"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
