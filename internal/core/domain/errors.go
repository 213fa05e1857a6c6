package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingRequiredField indicates a write was attempted without a required field
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotConnected indicates the user has no usable Instagram connection
	ErrNotConnected = errors.New("instagram account not connected")

	// ErrTokenInvalidated indicates the provider rejected the stored token and the bundle was cleared
	ErrTokenInvalidated = errors.New("instagram token invalidated")

	// ErrNoPages indicates the user token owns no Facebook pages
	ErrNoPages = errors.New("no facebook pages found for this user")

	// ErrNoLinkedAccount indicates none of the user's pages has a linked Instagram business account
	ErrNoLinkedAccount = errors.New("no instagram business account linked to any facebook page")

	// ErrPendingLoginInvalid indicates the pending login state is missing, forged, expired or replayed
	ErrPendingLoginInvalid = errors.New("pending login invalid")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLockNotHeld indicates a distributed lock expired or was taken over
	ErrLockNotHeld = errors.New("lock not held")
)

// ProviderError is returned by the Graph client for any failed upstream call.
// Body holds the upstream response verbatim for diagnostics.
type ProviderError struct {
	Op         string `json:"op"`
	StatusCode int    `json:"status,omitempty"`
	Body       string `json:"body,omitempty"`
	Code       int    `json:"code,omitempty"`
	Subcode    int    `json:"subcode,omitempty"`
	Message    string `json:"message,omitempty"`
	Err        error  `json:"-"`
}

func (e *ProviderError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s: provider returned %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: provider returned %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	default:
		return e.Op + ": provider error"
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// LoginStage is a state of the login completion flow.
type LoginStage string

const (
	StageCodeReceived       LoginStage = "code_received"
	StageShortTokenAcquired LoginStage = "short_token_acquired"
	StageLongTokenAcquired  LoginStage = "long_token_acquired"
	StageAccountDiscovered  LoginStage = "account_discovered"
	StagePersisted          LoginStage = "persisted"
)

// LoginError reports an aborted login. Stage is the last stage reached
// before the failing step.
type LoginError struct {
	Stage LoginStage
	Err   error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("instagram login failed after %s: %v", e.Stage, e.Err)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
