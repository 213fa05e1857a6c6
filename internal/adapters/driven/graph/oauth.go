package graph

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

// Operation names carried by ProviderError.
const (
	OpExchangeCode      = "exchange_code"
	OpExchangeLongLived = "exchange_long_lived"
	OpRefresh           = "refresh"
	OpListPages         = "list_pages"
	OpProbePage         = "probe_page"
	OpProfile           = "profile"
	OpInsights          = "insights"
)

// AuthorizationURL builds the Facebook Login dialog URL.
func (c *Client) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for a short-lived user token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*domain.ShortToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return nil, newProviderError(OpExchangeCode, status, re.Body, err)
		}
		return nil, &domain.ProviderError{Op: OpExchangeCode, Message: err.Error(), Err: err}
	}

	return &domain.ShortToken{
		AccessToken: tok.AccessToken,
		UserID:      extraString(tok, "user_id"),
	}, nil
}

// tokenResponse is the fb_exchange_token response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (r *tokenResponse) validate(op string) error {
	if r.AccessToken == "" {
		return &domain.ProviderError{Op: op, Message: "response missing access_token"}
	}
	return nil
}

// ExchangeLongLived upgrades a short-lived token. Expiry is computed from
// expires_in when present.
func (c *Client) ExchangeLongLived(ctx context.Context, shortToken string) (*domain.LongToken, error) {
	return c.exchangeToken(ctx, OpExchangeLongLived, shortToken)
}

// Refresh re-runs the long-lived exchange with the current long-lived token.
func (c *Client) Refresh(ctx context.Context, longToken string) (*domain.LongToken, error) {
	return c.exchangeToken(ctx, OpRefresh, longToken)
}

func (c *Client) exchangeToken(ctx context.Context, op, token string) (*domain.LongToken, error) {
	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.clientID},
		"client_secret":     {c.clientSecret},
		"fb_exchange_token": {token},
	}

	var resp tokenResponse
	if err := c.getJSON(ctx, op, "/oauth/access_token", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.validate(op); err != nil {
		return nil, err
	}

	long := &domain.LongToken{AccessToken: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		expires := c.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
		long.ExpiresAt = &expires
	}
	return long, nil
}

func extraString(tok *oauth2.Token, key string) string {
	switch v := tok.Extra(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
