package domain

import (
	"errors"
	"testing"
	"time"
)

func TestTokenBundleInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   TokenBundleInput
		wantErr bool
	}{
		{
			name:  "user token only",
			input: TokenBundleInput{ExternalAccountID: "ig_42", UserAccessToken: "l1"},
		},
		{
			name:  "page token only",
			input: TokenBundleInput{ExternalAccountID: "ig_42", PageAccessToken: "pt_1"},
		},
		{
			name:    "missing external id",
			input:   TokenBundleInput{UserAccessToken: "l1"},
			wantErr: true,
		},
		{
			name:    "blank external id",
			input:   TokenBundleInput{ExternalAccountID: "   ", UserAccessToken: "l1"},
			wantErr: true,
		},
		{
			name:    "no tokens",
			input:   TokenBundleInput{ExternalAccountID: "ig_42"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrMissingRequiredField) {
					t.Errorf("expected ErrMissingRequiredField, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTokenBundle_AuthoritativeToken(t *testing.T) {
	tests := []struct {
		name       string
		bundle     TokenBundle
		wantToken  string
		wantSource TokenSource
	}{
		{
			name:       "page token wins",
			bundle:     TokenBundle{UserAccessToken: "l1", PageAccessToken: "pt_1"},
			wantToken:  "pt_1",
			wantSource: TokenSourcePage,
		},
		{
			name:       "falls back to user token",
			bundle:     TokenBundle{UserAccessToken: "l1"},
			wantToken:  "l1",
			wantSource: TokenSourceUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, source := tt.bundle.AuthoritativeToken()
			if token != tt.wantToken || source != tt.wantSource {
				t.Errorf("expected (%q, %q), got (%q, %q)", tt.wantToken, tt.wantSource, token, source)
			}
		})
	}
}

func TestTokenBundle_Connected(t *testing.T) {
	tests := []struct {
		name     string
		bundle   TokenBundle
		expected bool
	}{
		{"connected with token", TokenBundle{IsConnected: true, UserAccessToken: "l1"}, true},
		{"connected flag without tokens", TokenBundle{IsConnected: true}, false},
		{"disconnected with token", TokenBundle{IsConnected: false, PageAccessToken: "pt"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.bundle.Connected() != tt.expected {
				t.Errorf("expected Connected() = %v", tt.expected)
			}
		})
	}
}

func TestTokenBundle_NeedsRefresh(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	soon := now.Add(2 * 24 * time.Hour)
	later := now.Add(30 * 24 * time.Hour)

	tests := []struct {
		name     string
		bundle   TokenBundle
		expected bool
	}{
		{"no expiry", TokenBundle{UserAccessToken: "l1"}, false},
		{"no user token", TokenBundle{PageAccessToken: "pt", ExpiresAt: &soon}, false},
		{"inside window", TokenBundle{UserAccessToken: "l1", ExpiresAt: &soon}, true},
		{"outside window", TokenBundle{UserAccessToken: "l1", ExpiresAt: &later}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bundle.NeedsRefresh(now, 7*24*time.Hour); got != tt.expected {
				t.Errorf("expected NeedsRefresh() = %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestTokenBundle_ToStatus(t *testing.T) {
	expires := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("connected", func(t *testing.T) {
		b := &TokenBundle{
			ExternalAccountID: "ig_42",
			DisplayName:       "acme",
			AccountKind:       AccountKindBusiness,
			UserAccessToken:   "l1",
			ExpiresAt:         &expires,
			IsConnected:       true,
		}
		status := b.ToStatus()
		if !status.Connected {
			t.Fatal("expected connected")
		}
		if status.ExternalAccountID == nil || *status.ExternalAccountID != "ig_42" {
			t.Errorf("unexpected external id %v", status.ExternalAccountID)
		}
		if status.DisplayName == nil || *status.DisplayName != "acme" {
			t.Errorf("unexpected display name %v", status.DisplayName)
		}
		if status.ExpiresAt == nil || !status.ExpiresAt.Equal(expires) {
			t.Errorf("unexpected expiry %v", status.ExpiresAt)
		}
	})

	t.Run("cleared bundle exposes nothing", func(t *testing.T) {
		b := &TokenBundle{ExternalAccountID: "ig_42", DisplayName: "acme", IsConnected: false}
		status := b.ToStatus()
		if status.Connected || status.ExternalAccountID != nil || status.DisplayName != nil ||
			status.AccountKind != nil || status.ExpiresAt != nil {
			t.Errorf("expected empty status, got %+v", status)
		}
	})

	t.Run("nil bundle", func(t *testing.T) {
		var b *TokenBundle
		if b.ToStatus().Connected {
			t.Error("expected disconnected status")
		}
	})
}
