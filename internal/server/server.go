// ABOUTME: Composition root for the lawmatics-mcp HTTP server.
// ABOUTME: Wires the store, OAuth manager, API client, and MCP endpoint together.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/lexops/lawmatics-mcp/internal/auth"
	"github.com/lexops/lawmatics-mcp/internal/config"
	"github.com/lexops/lawmatics-mcp/internal/lawmatics"
	"github.com/lexops/lawmatics-mcp/internal/mcp"
	"github.com/lexops/lawmatics-mcp/internal/oauth"
	"github.com/lexops/lawmatics-mcp/internal/prompts"
	"github.com/lexops/lawmatics-mcp/internal/store"
	"github.com/lexops/lawmatics-mcp/internal/tools"
)

// Server owns every long-lived component and the HTTP listener.
type Server struct {
	config  *config.Config
	logger  *slog.Logger
	version string

	store      *store.SQLiteStore
	manager    *oauth.Manager
	client     *lawmatics.Client
	httpServer *http.Server
	mux        *http.ServeMux
}

// New builds the full component graph from configuration. Nothing is
// listening yet; call Run.
func New(cfg *config.Config, logger *slog.Logger, version string) (*Server, error) {
	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	manager, err := oauth.NewManager(oauth.Config{
		ClientID:       cfg.OAuth.ClientID,
		ClientSecret:   cfg.OAuth.ClientSecret,
		RedirectURI:    cfg.OAuth.RedirectURI,
		AuthorizeURL:   cfg.OAuth.AuthorizeURL,
		TokenURL:       cfg.OAuth.TokenURL,
		Scope:          cfg.OAuth.Scope,
		PKCE:           cfg.OAuth.PKCE,
		ExpirySkew:     cfg.OAuth.ExpirySkew,
		RefreshRetries: cfg.OAuth.RefreshRetries,
		RetryBackoff:   cfg.OAuth.RetryBackoff,
		Store:          sqlStore,
		Events:         sqlStore,
		Logger:         logger,
	})
	if err != nil {
		sqlStore.Close()
		return nil, fmt.Errorf("creating token manager: %w", err)
	}

	var apiHTTPClient *http.Client
	if cfg.Lawmatics.RequestTimeout > 0 {
		apiHTTPClient = &http.Client{Timeout: cfg.Lawmatics.RequestTimeout}
	}

	client, err := lawmatics.NewClient(lawmatics.Config{
		BaseURL:    cfg.Lawmatics.APIBaseURL,
		Tokens:     manager,
		HTTPClient: apiHTTPClient,
		Logger:     logger,
	})
	if err != nil {
		sqlStore.Close()
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	registry, err := tools.NewRegistry(tools.Config{
		Client:    client,
		Version:   version,
		AuthState: func() string { return string(manager.State()) },
		Logger:    logger,
	})
	if err != nil {
		sqlStore.Close()
		return nil, fmt.Errorf("building tool registry: %w", err)
	}

	catalog, err := prompts.Load()
	if err != nil {
		sqlStore.Close()
		return nil, fmt.Errorf("loading prompt catalog: %w", err)
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Registry:      registry,
		Prompts:       catalog,
		Resources:     mcp.NewLawmaticsResources(client),
		Logger:        logger,
		TokenVerifier: verifier,
		ServerName:    "lawmatics-mcp",
		ServerVersion: version,
	})
	if err != nil {
		sqlStore.Close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		version: version,
		store:   sqlStore,
		manager: manager,
		client:  client,
	}

	mux := http.NewServeMux()
	mcpServer.RegisterRoutes(mux)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/ready", s.handleReady)

	authed := auth.HTTPAuthMiddleware(verifier)
	mux.Handle("/auth/events", authed(http.HandlerFunc(s.handleAuthEvents)))

	s.mux = mux
	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Manager returns the OAuth token manager.
func (s *Server) Manager() *oauth.Manager {
	return s.manager
}

// Run serves HTTP until the context is canceled or the listener fails, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.httpServer.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", listener.Addr().String())
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serveErr = <-errCh:
		s.logger.Error("server error", "error", serveErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already
// canceled by the time we get here.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// handleReady reports whether outbound Lawmatics calls can be served right
// now, which requires a usable token record.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	state := s.manager.State()
	ready := state == oauth.StateAuthorized || state == oauth.StateExpired || state == oauth.StateRefreshing

	payload := map[string]any{
		"ready":      ready,
		"auth_state": string(state),
		"version":    s.version,
	}
	if token := s.manager.Token(); token != nil {
		payload["token_expires_at"] = token.ExpiresAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encoding readiness response", "error", err)
	}
}

// handleAuthEvents lists recent token lifecycle events, newest first.
func (s *Server) handleAuthEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	events, err := s.store.ListAuthEvents(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing auth events", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	type eventJSON struct {
		ID        string    `json:"id"`
		Event     string    `json:"event"`
		Detail    string    `json:"detail,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{ID: e.ID, Event: e.Event, Detail: e.Detail, Timestamp: e.Timestamp})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"events": out}); err != nil {
		s.logger.Error("encoding auth events response", "error", err)
	}
}
