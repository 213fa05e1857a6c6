// Package statesign signs opaque values that round-trip through the browser,
// such as the pending Instagram login state.
package statesign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Ensure Signer implements StateSigner
var _ driven.StateSigner = (*Signer)(nil)

// ErrEmptySecret is returned when no signing secret is configured.
var ErrEmptySecret = errors.New("state signing secret must not be empty")

// Signer signs payloads with HMAC-SHA256.
type Signer struct {
	secret []byte
}

// New creates a Signer. Rotating the secret invalidates all outstanding values.
func New(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns payload + "." + hex(HMAC-SHA256(payload)).
func (s *Signer) Sign(payload []byte) string {
	return string(payload) + "." + hex.EncodeToString(s.mac(payload))
}

// Verify splits on the last "." and compares the lowercase hex digest in
// constant time. Any other encoding of the same digest is rejected.
func (s *Signer) Verify(token string) ([]byte, bool) {
	idx := strings.LastIndexByte(token, '.')
	if idx <= 0 || idx == len(token)-1 {
		return nil, false
	}
	payload, got := token[:idx], token[idx+1:]

	want := hex.EncodeToString(s.mac([]byte(payload)))
	if len(got) != len(want) || !hmac.Equal([]byte(got), []byte(want)) {
		return nil, false
	}
	return []byte(payload), true
}

func (s *Signer) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return h.Sum(nil)
}
