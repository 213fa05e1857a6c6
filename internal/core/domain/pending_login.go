package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PendingLoginState survives the OAuth redirect round-trip. It is signed and
// carried in a cookie and in the provider's state parameter.
type PendingLoginState struct {
	UserID     string `json:"uid"`
	ReturnPath string `json:"returnTo"`
	Nonce      string `json:"nonce"`
	IssuedAt   int64  `json:"ts"` // unix milliseconds
}

// Encode serializes the state for signing as base64url JSON, which is safe in
// both cookie values and query parameters.
func (s *PendingLoginState) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode pending login: %w", err)
	}
	out := make([]byte, base64.RawURLEncoding.EncodedLen(len(data)))
	base64.RawURLEncoding.Encode(out, data)
	return out, nil
}

// DecodePendingLoginState parses a verified payload
func DecodePendingLoginState(payload []byte) (*PendingLoginState, error) {
	data, err := base64.RawURLEncoding.DecodeString(string(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPendingLoginInvalid, err)
	}
	var s PendingLoginState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPendingLoginInvalid, err)
	}
	if s.UserID == "" || s.Nonce == "" {
		return nil, fmt.Errorf("%w: missing user or nonce", ErrPendingLoginInvalid)
	}
	return &s, nil
}

// Issued returns the issuance time
func (s *PendingLoginState) Issued() time.Time {
	return time.UnixMilli(s.IssuedAt)
}

// IsExpired checks if the state is older than ttl
func (s *PendingLoginState) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.Issued()) > ttl
}

// SafeReturnPath returns path if it is a local absolute path, else fallback.
// Protocol-relative and backslash paths are rejected to avoid open redirects.
func SafeReturnPath(path, fallback string) string {
	if path == "" || !strings.HasPrefix(path, "/") {
		return fallback
	}
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return fallback
	}
	return path
}

// AppendConnectedFlag appends the instagram=connected indicator to a path
func AppendConnectedFlag(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "instagram=connected"
}
