package domain

import (
	"fmt"
	"strings"
	"time"
)

// TokenSource identifies which stored token is used for Graph API calls
type TokenSource string

const (
	TokenSourcePage TokenSource = "page" // Page-scoped token from discovery
	TokenSourceUser TokenSource = "user" // Long-lived user token
)

// AccountKind values reported by discovery
const (
	AccountKindBusiness = "business"
)

// TokenBundle is the persisted record aggregating all tokens and metadata for
// one Instagram business account.
type TokenBundle struct {
	ID                string     `json:"id"`
	InternalUserID    string     `json:"internal_user_id,omitempty"`
	ExternalAccountID string     `json:"external_account_id"`
	UserAccessToken   string     `json:"-"` // Never serialize
	PageAccessToken   string     `json:"-"` // Never serialize
	LinkedPageID      string     `json:"linked_page_id,omitempty"`
	DisplayName       string     `json:"display_name,omitempty"`
	AccountKind       string     `json:"account_kind,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	LastRefreshedAt   *time.Time `json:"last_refreshed_at,omitempty"`
	IsConnected       bool       `json:"is_connected"`
	GrantedScopes     []string   `json:"granted_scopes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// HasUsableToken reports whether at least one token is stored
func (b *TokenBundle) HasUsableToken() bool {
	return b.UserAccessToken != "" || b.PageAccessToken != ""
}

// Connected is the connection state trusted by status and metrics.
func (b *TokenBundle) Connected() bool {
	return b.IsConnected && b.HasUsableToken()
}

// AuthoritativeToken returns the token to use for Graph calls: the page token
// when present, else the long-lived user token.
func (b *TokenBundle) AuthoritativeToken() (string, TokenSource) {
	if b.PageAccessToken != "" {
		return b.PageAccessToken, TokenSourcePage
	}
	return b.UserAccessToken, TokenSourceUser
}

// NeedsRefresh checks if the user token expires within the given window
func (b *TokenBundle) NeedsRefresh(now time.Time, window time.Duration) bool {
	if b.ExpiresAt == nil || b.UserAccessToken == "" {
		return false
	}
	return now.Add(window).After(*b.ExpiresAt)
}

// ToStatus builds the status view. Nothing derived from the bundle is exposed
// once it is no longer connected.
func (b *TokenBundle) ToStatus() *ConnectionStatus {
	if b == nil || !b.Connected() {
		return &ConnectionStatus{}
	}
	status := &ConnectionStatus{
		Connected:         true,
		ExternalAccountID: stringPtr(b.ExternalAccountID),
		DisplayName:       stringPtr(b.DisplayName),
		AccountKind:       stringPtr(b.AccountKind),
	}
	if b.ExpiresAt != nil {
		expires := b.ExpiresAt.UTC()
		status.ExpiresAt = &expires
	}
	return status
}

// TokenBundleInput is a write to the token store. Empty optional fields
// leave the stored values untouched.
type TokenBundleInput struct {
	InternalUserID    string
	ExternalAccountID string
	UserAccessToken   string
	PageAccessToken   string
	LinkedPageID      string
	DisplayName       string
	AccountKind       string
	ExpiresAt         *time.Time
	GrantedScopes     []string
	IsConnected       bool
	LastRefreshedAt   time.Time
}

// Validate enforces the write-time invariants of a bundle
func (in *TokenBundleInput) Validate() error {
	if strings.TrimSpace(in.ExternalAccountID) == "" {
		return fmt.Errorf("%w: external account id", ErrMissingRequiredField)
	}
	if in.UserAccessToken == "" && in.PageAccessToken == "" {
		return fmt.Errorf("%w: user or page access token", ErrMissingRequiredField)
	}
	return nil
}

// ShortToken is the credential returned by the authorization code exchange
type ShortToken struct {
	AccessToken string
	UserID      string
}

// LongToken is a long-lived user token
type LongToken struct {
	AccessToken string
	ExpiresAt   *time.Time // nil when the provider reports no expiry
}

// AccountIdentity is the business account found during discovery
type AccountIdentity struct {
	ExternalAccountID string
	DisplayName       string
	AccountKind       string
	LinkedPageID      string
	PageAccessToken   string
}

// LoginResult is returned by a completed login
type LoginResult struct {
	ExternalAccountID string      `json:"externalAccountId"`
	DisplayName       string      `json:"displayName,omitempty"`
	LinkedPageID      string      `json:"linkedPageId,omitempty"`
	ExpiresAt         *time.Time  `json:"expiresAt,omitempty"`
	AccessToken       string      `json:"-"` // Authoritative token, never serialized
	TokenSource       TokenSource `json:"tokenSource"`
}

// ConnectionStatus is the status endpoint view
type ConnectionStatus struct {
	Connected         bool       `json:"connected"`
	ExternalAccountID *string    `json:"externalAccountId"`
	DisplayName       *string    `json:"displayName"`
	AccountKind       *string    `json:"accountKind"`
	ExpiresAt         *time.Time `json:"expiresAt"`
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
