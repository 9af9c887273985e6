// ABOUTME: Interactive authorization flow with a one-shot local callback server.
// ABOUTME: Captures the redirect, verifies state, and exchanges the code for tokens.

package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexops/lawmatics-mcp/internal/oauth"
)

// callbackResult is what the HTTP handler delivers to the waiting flow.
type callbackResult struct {
	code string
	err  error
}

// Config holds the settings for a Flow.
type Config struct {
	// Manager drives the authorize URL and code exchange. Required.
	Manager *oauth.Manager

	// RedirectURI must match the manager's configured redirect URI; its
	// host, port, and path determine where the callback server listens.
	RedirectURI string

	// OpenBrowser is called with the authorization URL. Optional; when nil
	// the URL is only logged for the operator to open manually.
	OpenBrowser func(url string) error

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Flow runs one interactive authorization round trip.
type Flow struct {
	manager     *oauth.Manager
	state       string
	addr        string
	path        string
	openBrowser func(string) error
	logger      *slog.Logger

	listener net.Listener
	server   *http.Server
	once     sync.Once
	results  chan callbackResult
}

// New creates a Flow. The callback server is not started yet.
func New(cfg Config) (*Flow, error) {
	if cfg.Manager == nil {
		return nil, errors.New("authflow: manager is required")
	}

	u, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect URI: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("redirect URI %q has no host", cfg.RedirectURI)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Flow{
		manager:     cfg.Manager,
		state:       uuid.New().String(),
		addr:        u.Host,
		path:        path,
		openBrowser: cfg.OpenBrowser,
		logger:      logger.With("component", "authflow"),
		results:     make(chan callbackResult, 1),
	}, nil
}

// Start binds the callback listener and announces the authorization URL.
func (f *Flow) Start() (string, error) {
	authURL, err := f.manager.AuthorizeURL(f.state)
	if err != nil {
		return "", fmt.Errorf("building authorization URL: %w", err)
	}

	listener, err := net.Listen("tcp", f.addr)
	if err != nil {
		return "", fmt.Errorf("binding callback listener on %s: %w", f.addr, err)
	}
	f.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc(f.path, f.handleCallback)
	f.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := f.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.deliver(callbackResult{err: fmt.Errorf("callback server: %w", err)})
		}
	}()

	f.logger.Info("waiting for authorization callback",
		"listen", listener.Addr().String(),
		"path", f.path,
	)

	if f.openBrowser != nil {
		if err := f.openBrowser(authURL); err != nil {
			f.logger.Warn("could not open browser, open the URL manually", "error", err)
		}
	}

	return authURL, nil
}

// Addr returns the bound callback address. Valid after Start.
func (f *Flow) Addr() string {
	if f.listener == nil {
		return ""
	}
	return f.listener.Addr().String()
}

// Wait blocks until the callback arrives, then exchanges the code and
// returns the issued token. The callback server shuts down on return.
func (f *Flow) Wait(ctx context.Context) (*oauth.Token, error) {
	defer f.shutdown()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-f.results:
		if result.err != nil {
			return nil, result.err
		}
		token, err := f.manager.Exchange(ctx, result.code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code: %w", err)
		}
		return token, nil
	}
}

// Run starts the flow and waits for completion.
func (f *Flow) Run(ctx context.Context) (*oauth.Token, error) {
	if _, err := f.Start(); err != nil {
		return nil, err
	}
	return f.Wait(ctx)
}

// handleCallback processes the provider redirect. Exactly one result is
// delivered; later requests get an error page.
func (f *Flow) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		description := query.Get("error_description")
		if description == "" {
			description = "the authorization server rejected the request"
		}
		writeErrorPage(w, fmt.Sprintf("The provider returned %q: %s.", errCode, description))
		f.deliver(callbackResult{err: fmt.Errorf("authorization denied: %s: %s", errCode, description)})
		return
	}

	if query.Get("state") != f.state {
		writeErrorPage(w, "The state parameter did not match. This can indicate a stale or forged request.")
		f.deliver(callbackResult{err: errors.New("authorization state mismatch")})
		return
	}

	code := query.Get("code")
	if code == "" {
		writeErrorPage(w, "No authorization code was received.")
		f.deliver(callbackResult{err: errors.New("callback carried no authorization code")})
		return
	}

	writeSuccessPage(w)
	f.deliver(callbackResult{code: code})
}

// deliver hands the first result to Wait; later results are dropped.
func (f *Flow) deliver(result callbackResult) {
	f.once.Do(func() {
		f.results <- result
	})
}

func (f *Flow) shutdown() {
	if f.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = f.server.Shutdown(ctx)
}
