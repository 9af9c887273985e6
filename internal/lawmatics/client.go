// ABOUTME: HTTP client for the Lawmatics REST API with bearer authentication
// ABOUTME: Retries a request exactly once after a 401 by forcing a token refresh

package lawmatics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lexops/lawmatics-mcp/internal/oauth"
)

// DefaultBaseURL is the production Lawmatics REST API root.
const DefaultBaseURL = "https://api.lawmatics.com/v1/"

const defaultTimeout = 30 * time.Second

// TokenSource supplies valid access tokens for outgoing requests.
// *oauth.Manager satisfies it.
type TokenSource interface {
	EnsureValid(ctx context.Context) (*oauth.Token, error)
	Refresh(ctx context.Context) (*oauth.Token, error)
}

// APIError is a non-2xx response from the Lawmatics API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lawmatics api: HTTP %d: %s", e.StatusCode, e.Body)
}

// Config holds the settings for a Client.
type Config struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL. A trailing
	// slash is appended if missing.
	BaseURL string

	// Tokens supplies access tokens. Required.
	Tokens TokenSource

	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Client talks to the Lawmatics REST API. Responses are passed through as
// raw JSON; the API's payload shapes are account-specific (custom fields)
// so the client does not impose a schema on them.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Lawmatics API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("lawmatics: token source is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		tokens:  cfg.Tokens,
		http:    httpClient,
		logger:  logger.With("component", "lawmatics"),
	}, nil
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get performs a GET request against the given API path.
func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// post performs a POST request with a JSON payload.
func (c *Client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, payload)
}

// put performs a PUT request with a JSON payload.
func (c *Client) put(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, nil, payload)
}

// delete performs a DELETE request against the given API path.
func (c *Client) delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do issues one API request. On a 401 it forces a token refresh and retries
// exactly once; a second 401 is returned to the caller as-is.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (json.RawMessage, error) {
	token, err := c.tokens.EnsureValid(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining access token: %w", err)
	}

	result, status, err := c.send(ctx, method, path, query, payload, token.AccessToken)
	if status != http.StatusUnauthorized {
		return result, err
	}

	c.logger.Debug("request rejected with 401, refreshing token", "method", method, "path", path)
	token, refreshErr := c.tokens.Refresh(ctx)
	if refreshErr != nil {
		return nil, fmt.Errorf("refreshing rejected token: %w", refreshErr)
	}

	result, _, err = c.send(ctx, method, path, query, payload, token.AccessToken)
	return result, err
}

// send issues a single HTTP request and decodes the response.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload any, accessToken string) (json.RawMessage, int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if len(data) == 0 {
		return json.RawMessage(`{}`), resp.StatusCode, nil
	}
	return json.RawMessage(data), resp.StatusCode, nil
}

// setIfPresent adds a query parameter when the value is non-empty.
func setIfPresent(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
