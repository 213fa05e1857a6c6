package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrAlreadyExists", ErrAlreadyExists, "already exists"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrMissingRequiredField", ErrMissingRequiredField, "missing required field"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrNotConnected", ErrNotConnected, "instagram account not connected"},
		{"ErrTokenInvalidated", ErrTokenInvalidated, "instagram token invalidated"},
		{"ErrTokenExpired", ErrTokenExpired, "token expired"},
		{"ErrTokenInvalid", ErrTokenInvalid, "token invalid"},
		{"ErrSessionNotFound", ErrSessionNotFound, "session not found"},
		{"ErrInvalidCredentials", ErrInvalidCredentials, "invalid credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrMissingRequiredField,
		ErrUnauthorized,
		ErrNotConnected,
		ErrTokenInvalidated,
		ErrNoPages,
		ErrNoLinkedAccount,
		ErrPendingLoginInvalid,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrSessionNotFound,
		ErrInvalidCredentials,
		ErrLockNotHeld,
	}

	for i, a := range allErrors {
		for j, b := range allErrors {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want string
	}{
		{
			name: "status and message",
			err:  &ProviderError{Op: "exchange_code", StatusCode: 400, Message: "bad code"},
			want: "exchange_code: provider returned 400: bad code",
		},
		{
			name: "status only",
			err:  &ProviderError{Op: "discover", StatusCode: 502},
			want: "discover: provider returned 502",
		},
		{
			name: "network failure",
			err:  &ProviderError{Op: "refresh", Err: errors.New("dial tcp: timeout")},
			want: "refresh: dial tcp: timeout",
		},
		{
			name: "message only",
			err:  &ProviderError{Op: "exchange_long_lived", Message: "missing access_token"},
			want: "exchange_long_lived: missing access_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoginError_Unwrap(t *testing.T) {
	provider := &ProviderError{Op: "discover", StatusCode: 500}
	err := fmt.Errorf("wrapped: %w", &LoginError{Stage: StageLongTokenAcquired, Err: provider})

	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatal("expected LoginError in chain")
	}
	if loginErr.Stage != StageLongTokenAcquired {
		t.Errorf("expected stage %q, got %q", StageLongTokenAcquired, loginErr.Stage)
	}

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatal("expected ProviderError in chain")
	}
	if providerErr.Op != "discover" {
		t.Errorf("expected op discover, got %q", providerErr.Op)
	}
}

func TestPersistenceError_Unwrap(t *testing.T) {
	err := &PersistenceError{Op: "upsert token bundle", Err: ErrMissingRequiredField}
	if !errors.Is(err, ErrMissingRequiredField) {
		t.Error("expected PersistenceError to unwrap to its cause")
	}
	if err.Error() != "persistence: upsert token bundle: missing required field" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
