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
)

// Client encapsulates outbound HTTP calls to the Workplace Graph API.
type Client interface {
	ExchangeCode(ctx context.Context, redirectURI, code string) (*TokenResponse, error)
	Me(ctx context.Context, accessToken string) (*Profile, error)
	Community(ctx context.Context, accessToken, fields string) (*CommunityResponse, error)
	Subscribe(ctx context.Context, topic, callbackURL, verifyToken string, fields []string) error
}

// TokenResponse models the Graph token endpoint response.
type TokenResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	IDToken     string         `json:"id_token"`
	Raw         map[string]any `json:"-"`
}

// Profile is the /me response.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Install carries installation metadata attached to a community.
type Install struct {
	ID          string   `json:"id"`
	InstallType string   `json:"install_type"`
	Permissions []string `json:"permissions"`
}

// CommunityResponse is the /community response.
type CommunityResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Install *Install `json:"install"`
}

// Config holds the Graph endpoint and application credentials.
type Config struct {
	BaseURL   string
	Version   string
	AppID     string
	AppSecret string
}

// HTTPClient is the default HTTP implementation.
type HTTPClient struct {
	httpClient *http.Client
	cfg        Config
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs the default Graph client.
func NewHTTPClient(client *http.Client, cfg Config) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{httpClient: client, cfg: cfg}
}

// ExchangeCode swaps an authorization code for an access token. Upstream
// HTTP failures propagate to the caller untouched; there is no retry.
func (c *HTTPClient) ExchangeCode(ctx context.Context, redirectURI, code string) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("client_id", c.cfg.AppID)
	params.Set("client_secret", c.cfg.AppSecret)
	params.Set("redirect_uri", redirectURI)
	params.Set("code", code)
	params.Set("grant_type", "authorization_code")

	body, err := c.get(ctx, "oauth/access_token", params)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	token := &TokenResponse{Raw: raw}
	if err := json.Unmarshal(body, token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return token, nil
}

// Me fetches the installed page's profile.
func (c *HTTPClient) Me(ctx context.Context, accessToken string) (*Profile, error) {
	params := url.Values{}
	params.Set("fields", "name")
	params.Set("access_token", accessToken)

	body, err := c.get(ctx, "me", params)
	if err != nil {
		return nil, err
	}
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// Community fetches community metadata for the token's install.
func (c *HTTPClient) Community(ctx context.Context, accessToken, fields string) (*CommunityResponse, error) {
	params := url.Values{}
	params.Set("fields", fields)
	params.Set("access_token", accessToken)

	body, err := c.get(ctx, "community", params)
	if err != nil {
		return nil, err
	}
	var community CommunityResponse
	if err := json.Unmarshal(body, &community); err != nil {
		return nil, fmt.Errorf("decode community: %w", err)
	}
	return &community, nil
}

// Subscribe registers a webhook subscription using the app access token.
func (c *HTTPClient) Subscribe(ctx context.Context, topic, callbackURL, verifyToken string, fields []string) error {
	params := url.Values{}
	params.Set("object", topic)
	params.Set("callback_url", callbackURL)
	params.Set("verify_token", verifyToken)
	params.Set("fields", strings.Join(fields, ","))
	params.Set("access_token", c.cfg.AppID+"|"+c.cfg.AppSecret)

	endpoint := c.endpoint("app/subscriptions") + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build subscribe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph subscribe: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read subscribe response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("graph subscribe %s: status=%d body=%s", topic, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.endpoint(path) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read graph response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("graph %s: status=%d body=%s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *HTTPClient) endpoint(path string) string {
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	if c.cfg.Version != "" {
		return base + "/" + c.cfg.Version + "/" + path
	}
	return base + "/" + path
}
