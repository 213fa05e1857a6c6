package mocks

import (
	"strings"

	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Ensure MockStateSigner implements StateSigner
var _ driven.StateSigner = (*MockStateSigner)(nil)

// MockStateSigner appends a fixed suffix instead of an HMAC.
// NOT secure - only for testing.
type MockStateSigner struct{}

func (MockStateSigner) Sign(payload []byte) string {
	return string(payload) + ".signed"
}

func (MockStateSigner) Verify(token string) ([]byte, bool) {
	payload, ok := strings.CutSuffix(token, ".signed")
	if !ok {
		return nil, false
	}
	return []byte(payload), true
}
