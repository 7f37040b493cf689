// Package reddit talks to the reddit JSON API on behalf of a script
// application authenticated with the OAuth2 password grant.
package reddit

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

	"SubredditOfTheDay/internal/ports"
)

const (
	defaultAPIBase   = "https://oauth.reddit.com"
	defaultTokenURL  = "https://www.reddit.com/api/v1/access_token"
	defaultUserAgent = "linux:srotd:v0.2"
)

// Config carries script-app credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
	APIBase      string
	TokenURL     string
}

// Client is a reddit API client. Login must succeed before any other call.
type Client struct {
	cfg  Config
	base *http.Client
	api  *http.Client
	me   string
}

var _ ports.Platform = (*Client)(nil)

// NewClient applies defaults; base may be nil.
func NewClient(cfg Config, base *http.Client) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if base == nil {
		base = &http.Client{Timeout: 20 * time.Second}
	}

	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	withUA := *base
	withUA.Transport = userAgentTransport{agent: cfg.UserAgent, next: transport}

	return &Client{cfg: cfg, base: &withUA}
}

// Login obtains an access token and verifies it against the account endpoint.
// Credential problems are reported as ports.ErrUnauthorized.
func (c *Client) Login(ctx context.Context) error {
	if c.cfg.ClientID == "" || c.cfg.Username == "" {
		return fmt.Errorf("%w: reddit credentials missing", ports.ErrUnauthorized)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, c.base)
	token, err := oauthCfg.PasswordCredentialsToken(tokenCtx, c.cfg.Username, c.cfg.Password)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrUnauthorized, err)
	}

	api := oauth2.NewClient(context.WithValue(context.Background(), oauth2.HTTPClient, c.base), oauth2.StaticTokenSource(token))
	api.Timeout = c.base.Timeout
	c.api = api

	var me struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, "/api/v1/me", nil, &me); err != nil {
		c.api = nil
		return fmt.Errorf("verify login: %w", err)
	}
	c.me = me.Name
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	endpoint := c.cfg.APIBase + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	return c.do(req, v)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBase+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v any) error {
	if c.api == nil {
		return fmt.Errorf("%w: not logged in", ports.ErrUnauthorized)
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s returned %s", ports.ErrUnauthorized, req.Method, req.URL.Path, resp.Status)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ports.ErrNotFound, req.URL.Path)
	case resp.StatusCode >= http.StatusBadRequest:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("reddit error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(clone)
}
