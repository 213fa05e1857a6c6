// Package graph is the Facebook Graph API client used for Instagram login,
// account discovery and insights.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Ensure Client implements the provider ports.
var (
	_ driven.InstagramProvider = (*Client)(nil)
	_ driven.InsightsProvider  = (*Client)(nil)
)

const (
	DefaultAuthURL      = "https://www.facebook.com/v21.0/dialog/oauth"
	DefaultGraphBaseURL = "https://graph.facebook.com/v21.0"
	DefaultTimeout      = 15 * time.Second

	// maxBodySize caps how much of a response is read.
	maxBodySize = 1 << 20
)

// DefaultScopes are requested when none are configured.
var DefaultScopes = []string{
	"instagram_basic",
	"instagram_manage_insights",
	"pages_show_list",
	"pages_read_engagement",
}

// Config holds app credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string        // default: DefaultAuthURL
	GraphBaseURL string        // default: DefaultGraphBaseURL
	Scopes       []string      // default: DefaultScopes
	Timeout      time.Duration // default: 15s, ignored when HTTPClient is set
	HTTPClient   *http.Client  // Optional
	Now          func() time.Time
}

// Client calls the Graph API. It holds no per-user state.
type Client struct {
	httpClient   *http.Client
	oauth        *oauth2.Config
	clientID     string
	clientSecret string
	baseURL      string
	now          func() time.Time
}

// NewClient creates a Graph API client.
func NewClient(cfg Config) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = DefaultGraphBaseURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	baseURL := strings.TrimSuffix(cfg.GraphBaseURL, "/")

	return &Client{
		httpClient: cfg.HTTPClient,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  baseURL + "/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      baseURL,
		now:          cfg.Now,
	}
}

// getJSON issues a GET against the Graph API and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &domain.ProviderError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ProviderError{Op: op, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &domain.ProviderError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newProviderError(op, resp.StatusCode, body, nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ProviderError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Message:    "decode response",
			Err:        err,
		}
	}
	return nil
}

// graphErrorEnvelope is the Graph API error body.
type graphErrorEnvelope struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// newProviderError builds a ProviderError, extracting the Graph error code,
// subcode and message when the body carries them.
func newProviderError(op string, status int, body []byte, cause error) *domain.ProviderError {
	perr := &domain.ProviderError{
		Op:         op,
		StatusCode: status,
		Body:       string(body),
		Err:        cause,
	}
	var envelope graphErrorEnvelope
	if json.Unmarshal(body, &envelope) == nil {
		perr.Code = envelope.Error.Code
		perr.Subcode = envelope.Error.ErrorSubcode
		perr.Message = envelope.Error.Message
	}
	return perr
}
