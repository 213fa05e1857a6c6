package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// graphInvalidTokenCode is the Graph API "invalid OAuth access token" error code.
const graphInvalidTokenCode = 190

// Graph API subcodes reported for expired, revoked or invalidated sessions.
var invalidTokenSubcodes = map[int]struct{}{
	458: {}, // app not installed
	459: {}, // user checkpointed
	460: {}, // password changed
	463: {}, // session expired
	464: {}, // unconfirmed user
	467: {}, // invalid access token
}

var invalidTokenMessages = []string{
	"invalid oauth access token",
	"session has expired",
	"has been invalidated",
}

// IsTokenInvalid reports whether err is a provider error meaning the token
// can no longer be used. Anything else is treated as transient.
func IsTokenInvalid(err error) bool {
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	if perr.Code == graphInvalidTokenCode {
		return true
	}
	if _, ok := invalidTokenSubcodes[perr.Subcode]; ok {
		return true
	}
	msg := strings.ToLower(perr.Message)
	for _, m := range invalidTokenMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// invalidateOnError clears the bundle when err says its token is invalid and
// returns an error wrapping domain.ErrTokenInvalidated. Other errors pass
// through unchanged.
func invalidateOnError(ctx context.Context, store driven.TokenStore, bundle *domain.TokenBundle, err error) error {
	if err == nil || !IsTokenInvalid(err) {
		return err
	}
	if clearErr := store.Clear(ctx, bundle.ID); clearErr != nil {
		return fmt.Errorf("clear invalidated bundle: %w", errors.Join(clearErr, err))
	}
	return fmt.Errorf("%w: %w", domain.ErrTokenInvalidated, err)
}
