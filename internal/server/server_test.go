// ABOUTME: Tests for the composition root and its operational HTTP endpoints.
// ABOUTME: Exercises health, readiness, auth events, and an MCP handshake end to end.

package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexops/lawmatics-mcp/internal/auth"
	"github.com/lexops/lawmatics-mcp/internal/config"
	"github.com/lexops/lawmatics-mcp/internal/oauth"
	"github.com/lexops/lawmatics-mcp/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		OAuth:    config.OAuthConfig{ClientID: "client-id", ClientSecret: "client-secret", RedirectURI: "http://localhost:8888/callback"},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger, "test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK\n", string(body))
}

func TestReadinessReflectsAuthState(t *testing.T) {
	cfg := testConfig(t)

	t.Run("unauthenticated", func(t *testing.T) {
		s := newTestServer(t, cfg)
		ts := httptest.NewServer(s.Handler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/health/ready")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, false, payload["ready"])
		assert.Equal(t, "unauthenticated", payload["auth_state"])
		assert.Equal(t, "test", payload["version"])
	})

	t.Run("authorized from persisted token", func(t *testing.T) {
		seed, err := store.NewSQLiteStore(cfg.Database.Path)
		require.NoError(t, err)
		now := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, seed.SaveToken(context.Background(), &oauth.Token{
			AccessToken:  "seeded",
			TokenType:    "Bearer",
			RefreshToken: "seeded-refresh",
			IssuedAt:     now,
			ExpiresAt:    now.Add(time.Hour),
		}))
		require.NoError(t, seed.Close())

		s := newTestServer(t, cfg)
		ts := httptest.NewServer(s.Handler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/health/ready")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, true, payload["ready"])
		assert.Equal(t, "authorized", payload["auth_state"])
		assert.NotEmpty(t, payload["token_expires_at"])
	})
}

func TestAuthEventsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	require.NoError(t, s.store.RecordAuthEvent(context.Background(), "authorized", ""))
	require.NoError(t, s.store.RecordAuthEvent(context.Background(), "refresh_failed", "network_error"))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/auth/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Events []struct {
			Event  string `json:"event"`
			Detail string `json:"detail"`
		} `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Events, 2)
	assert.Equal(t, "refresh_failed", payload.Events[0].Event)
	assert.Equal(t, "network_error", payload.Events[0].Detail)

	t.Run("invalid limit", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/auth/events?limit=abc")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAuthEventsRequiresTokenWhenSecretConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "test-secret"
	s := newTestServer(t, cfg)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/auth/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	verifier := auth.NewJWTVerifier([]byte("test-secret"))
	token, err := verifier.Generate("operator", time.Hour)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/auth/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMCPEndpointIsMounted(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-11-25","capabilities":{},"clientInfo":{"name":"probe","version":"0"}}}`
	resp, err := http.Post(ts.URL+"/mcp", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Mcp-Session-Id"))

	var rpc struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpc))
	assert.Equal(t, "lawmatics-mcp", rpc.Result.ServerInfo.Name)
}

func TestRunServesAndShutsDown(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	// Give the listener a moment to bind, then shut down.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
