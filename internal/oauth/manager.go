// ABOUTME: Token lifecycle manager for the Lawmatics OAuth authorization-code flow.
// ABOUTME: Owns the single token record; concurrent refreshes collapse into one exchange.

package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Default Lawmatics OAuth endpoints. The authorize endpoint lives on the app
// host, the token endpoint on the API host.
const (
	DefaultAuthorizeURL = "https://app.lawmatics.com/oauth/authorize"
	DefaultTokenURL     = "https://api.lawmatics.com/oauth/token"
)

const (
	defaultExpirySkew   = 30 * time.Second
	defaultRetryBackoff = 500 * time.Millisecond
	defaultRetries      = 2
	defaultHTTPTimeout  = 30 * time.Second
)

// Config configures a Manager. ClientID, ClientSecret, and RedirectURI are
// required; they are supplied externally and never generated here.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string // defaults to DefaultAuthorizeURL
	TokenURL     string // defaults to DefaultTokenURL
	Scope        string
	PKCE         bool

	ExpirySkew     time.Duration // refresh margin before hard expiry
	RefreshRetries int           // extra attempts on network errors during refresh
	RetryBackoff   time.Duration // base backoff between refresh retries, doubles

	HTTPClient *http.Client
	Store      TokenStore
	Events     EventRecorder
	Logger     *slog.Logger
}

// refreshCall is a single in-flight refresh exchange. Every caller that
// discovers an expired token while the call is pending waits on done and
// observes the same outcome.
type refreshCall struct {
	done  chan struct{}
	token *Token
	err   error
}

// Manager obtains, stores, validates, and refreshes the OAuth bearer token
// used to authenticate every outbound Lawmatics API call.
type Manager struct {
	clientID     string
	clientSecret string
	redirectURI  string
	authorizeURL string
	tokenURL     string
	scope        string
	pkce         bool

	expirySkew   time.Duration
	retries      int
	retryBackoff time.Duration

	httpClient *http.Client
	store      TokenStore
	events     EventRecorder
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	token    *Token
	state    State
	verifier string // PKCE verifier for the current flow, memory only
	inflight *refreshCall
}

// NewManager creates a manager and loads any persisted token record.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURI == "" {
		return nil, errors.New("redirect URI is required")
	}

	m := &Manager{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		authorizeURL: cfg.AuthorizeURL,
		tokenURL:     cfg.TokenURL,
		scope:        cfg.Scope,
		pkce:         cfg.PKCE,
		expirySkew:   cfg.ExpirySkew,
		retries:      cfg.RefreshRetries,
		retryBackoff: cfg.RetryBackoff,
		httpClient:   cfg.HTTPClient,
		store:        cfg.Store,
		events:       cfg.Events,
		logger:       cfg.Logger,
		now:          time.Now,
		state:        StateUnauthenticated,
	}
	if m.authorizeURL == "" {
		m.authorizeURL = DefaultAuthorizeURL
	}
	if m.tokenURL == "" {
		m.tokenURL = DefaultTokenURL
	}
	if m.expirySkew <= 0 {
		m.expirySkew = defaultExpirySkew
	}
	if m.retries == 0 {
		m.retries = defaultRetries
	} else if m.retries < 0 {
		m.retries = 0 // negative disables retries entirely
	}
	if m.retryBackoff <= 0 {
		m.retryBackoff = defaultRetryBackoff
	}
	if m.httpClient == nil {
		m.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "oauth")

	token, err := m.store.LoadToken(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading persisted token: %w", err)
	}
	if token != nil {
		m.token = token
		m.state = StateAuthorized
		m.logger.Debug("loaded persisted token", "expires_at", token.ExpiresAt)
	}
	return m, nil
}

// State returns the current lifecycle state. Expiry is derived lazily from
// the clock; there is no background timer.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight != nil {
		return StateRefreshing
	}
	if m.state == StateAuthorized && !m.token.Valid(m.now(), m.expirySkew) {
		return StateExpired
	}
	return m.state
}

// Token returns a copy of the current token record, or nil when absent.
func (m *Manager) Token() *Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.clone()
}

// AuthorizeURL builds the browser authorization URL. When PKCE is enabled a
// fresh verifier is generated for this flow and held in memory until the
// matching Exchange call consumes it.
func (m *Manager) AuthorizeURL(state string) (string, error) {
	params := url.Values{}
	params.Set("client_id", m.clientID)
	params.Set("redirect_uri", m.redirectURI)
	params.Set("response_type", "code")
	if m.scope != "" {
		params.Set("scope", m.scope)
	}
	if state != "" {
		params.Set("state", state)
	}

	if m.pkce {
		verifier, challenge, err := generatePKCE()
		if err != nil {
			return "", err
		}
		m.mu.Lock()
		m.verifier = verifier
		m.mu.Unlock()
		params.Set("code_challenge", challenge)
		params.Set("code_challenge_method", pkceMethodS256)
	}

	return m.authorizeURL + "?" + params.Encode(), nil
}

// Exchange trades a one-time authorization code for a token record. On
// success the record replaces any previous one wholesale; on failure the
// existing record is untouched.
func (m *Manager) Exchange(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, &AuthError{Code: ErrInvalidGrant, Description: "empty authorization code"}
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", m.redirectURI)
	form.Set("client_id", m.clientID)
	form.Set("client_secret", m.clientSecret)

	m.mu.Lock()
	verifier := m.verifier
	m.mu.Unlock()
	if m.pkce && verifier != "" {
		form.Set("code_verifier", verifier)
	}

	token, err := m.exchangeGrant(ctx, form)
	if err != nil {
		m.logger.Warn("authorization code exchange failed", "error", err)
		return nil, err
	}

	m.mu.Lock()
	m.token = token
	m.state = StateAuthorized
	m.verifier = "" // verifiers are single-use
	if serr := m.store.SaveToken(ctx, token); serr != nil {
		m.logger.Error("persisting token record failed", "error", serr)
	}
	m.mu.Unlock()

	m.recordEvent(ctx, "authorized", "")
	m.logger.Info("authorization complete", "expires_at", token.ExpiresAt, "scope", token.Scope)
	return token.clone(), nil
}

// EnsureValid returns the current token if it is not expired; otherwise it
// attempts exactly one refresh. On unrecoverable refresh failure the caller
// gets ErrReauthorizationRequired and the manager reverts to the
// unauthenticated state.
func (m *Manager) EnsureValid(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	if m.token.Valid(m.now(), m.expirySkew) {
		token := m.token.clone()
		m.mu.Unlock()
		return token, nil
	}
	if m.token == nil {
		m.mu.Unlock()
		return nil, &AuthError{
			Code:        ErrReauthorizationRequired,
			Description: "no token record; run the authorization flow",
		}
	}
	m.mu.Unlock()

	token, err := m.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if CodeOf(err) == ErrReauthorizationRequired {
			return nil, err
		}
		return nil, &AuthError{Code: ErrReauthorizationRequired, Err: err}
	}
	return token, nil
}

// Refresh performs the refresh-token exchange. Concurrent callers are
// serialized: only one exchange is in flight at a time and every waiter
// observes its result. A caller whose context expires stops waiting without
// affecting the shared exchange.
func (m *Manager) Refresh(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	call := m.inflight
	if call == nil {
		if m.token == nil || m.token.RefreshToken == "" {
			m.mu.Unlock()
			return nil, &AuthError{
				Code:        ErrReauthorizationRequired,
				Description: "no refresh token available",
			}
		}
		call = &refreshCall{done: make(chan struct{})}
		m.inflight = call
		m.state = StateRefreshing
		refreshToken := m.token.RefreshToken
		m.mu.Unlock()
		go m.runRefresh(call, refreshToken)
	} else {
		m.mu.Unlock()
	}

	select {
	case <-call.done:
		if call.err != nil {
			return nil, call.err
		}
		return call.token.clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runRefresh executes the refresh exchange with bounded retries on network
// errors, then commits the outcome under the lock. It deliberately uses a
// background context: the exchange is shared by every waiter, so one
// impatient caller must not cancel it for the rest.
func (m *Manager) runRefresh(call *refreshCall, refreshToken string) {
	ctx := context.Background()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", m.clientID)
	form.Set("client_secret", m.clientSecret)

	var token *Token
	var err error
	backoff := m.retryBackoff
	for attempt := 0; ; attempt++ {
		token, err = m.exchangeGrant(ctx, form)
		if err == nil {
			break
		}
		var ae *AuthError
		if !errors.As(err, &ae) || !ae.Retryable() || attempt >= m.retries {
			break
		}
		m.logger.Warn("token refresh failed, retrying",
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err,
		)
		time.Sleep(backoff)
		backoff *= 2
	}

	m.mu.Lock()
	switch {
	case err == nil && m.token == nil:
		// Revoked while the exchange was in flight; discard the result.
		err = &AuthError{Code: ErrReauthorizationRequired, Description: "token revoked during refresh"}
		m.state = StateUnauthenticated
	case err == nil:
		m.token = token
		m.state = StateAuthorized
		if serr := m.store.SaveToken(ctx, token); serr != nil {
			m.logger.Error("persisting refreshed token failed", "error", serr)
		}
	case CodeOf(err) == ErrInvalidGrant || CodeOf(err) == ErrRedirectMismatch:
		// The refresh token is dead. Clear the record; a fresh
		// authorization-code flow is the only way back.
		m.token = nil
		m.state = StateUnauthenticated
		if serr := m.store.ClearToken(ctx); serr != nil {
			m.logger.Error("clearing token record failed", "error", serr)
		}
	default:
		// Transient failure: keep the (expired) record so a later call
		// can retry once the network recovers.
		m.state = StateAuthorized
	}
	call.token = m.token.clone()
	call.err = err
	m.inflight = nil
	m.mu.Unlock()

	if err == nil {
		m.recordEvent(ctx, "refreshed", "")
		m.logger.Info("token refreshed", "expires_at", call.token.ExpiresAt)
	} else {
		m.recordEvent(ctx, "refresh_failed", string(CodeOf(err)))
		m.logger.Warn("token refresh failed", "error", err)
	}
	close(call.done)
}

// Revoke clears the token record and reverts to an unauthenticated state.
// A new authorization-code flow is required afterwards.
func (m *Manager) Revoke(ctx context.Context) error {
	m.mu.Lock()
	m.token = nil
	m.state = StateRevoked
	err := m.store.ClearToken(ctx)
	m.mu.Unlock()

	m.recordEvent(ctx, "revoked", "")
	m.logger.Info("token revoked")
	if err != nil {
		return fmt.Errorf("clearing token record: %w", err)
	}
	return nil
}

// exchangeGrant posts a grant request to the token endpoint and maps the
// response to a Token or an AuthError.
func (m *Manager) exchangeGrant(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthError{Code: ErrNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Code: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &AuthError{Code: ErrNetwork, Err: err}
	}

	if resp.StatusCode == http.StatusOK {
		var tr tokenResponse
		if err := json.Unmarshal(body, &tr); err != nil {
			return nil, &AuthError{Code: ErrNetwork, Description: "malformed token response", Err: err}
		}
		return tr.toToken(m.now().UTC())
	}

	if resp.StatusCode >= 500 {
		return nil, &AuthError{
			Code:        ErrNetwork,
			Description: fmt.Sprintf("token endpoint returned status %d", resp.StatusCode),
		}
	}

	var te tokenErrorResponse
	if err := json.Unmarshal(body, &te); err != nil || te.Error == "" {
		return nil, &AuthError{
			Code:        ErrInvalidGrant,
			Description: fmt.Sprintf("token endpoint returned status %d", resp.StatusCode),
		}
	}
	return nil, authErrorFromResponse(te.Error, te.ErrorDescription)
}

func (m *Manager) recordEvent(ctx context.Context, event, detail string) {
	if m.events == nil {
		return
	}
	if err := m.events.RecordAuthEvent(ctx, event, detail); err != nil {
		m.logger.Warn("recording auth event failed", "event", event, "error", err)
	}
}
