// ABOUTME: Tests for the interactive authorization flow and its callback server.
// ABOUTME: Uses a scripted token endpoint and drives the callback over real HTTP.

package authflow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexops/lawmatics-mcp/internal/oauth"
)

func newTokenEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "flow-access",
			"token_type":    "Bearer",
			"refresh_token": "flow-refresh",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestFlow(t *testing.T, tokenURL string) *Flow {
	t.Helper()
	manager, err := oauth.NewManager(oauth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://127.0.0.1:0/callback",
		TokenURL:     tokenURL,
	})
	require.NoError(t, err)

	flow, err := New(Config{Manager: manager, RedirectURI: "http://127.0.0.1:0/callback"})
	require.NoError(t, err)
	return flow
}

// stateFrom extracts the state parameter the flow baked into its authorize URL.
func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{RedirectURI: "http://127.0.0.1:0/callback"})
	assert.Error(t, err)

	manager, err := oauth.NewManager(oauth.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "relative-path",
	})
	require.NoError(t, err)

	_, err = New(Config{Manager: manager, RedirectURI: "relative-path"})
	assert.ErrorContains(t, err, "no host")
}

func TestFlowCompletesOnValidCallback(t *testing.T) {
	endpoint := newTokenEndpoint(t)
	flow := newTestFlow(t, endpoint.URL)

	authURL, err := flow.Start()
	require.NoError(t, err)
	require.Contains(t, authURL, "response_type=code")

	resp, err := http.Get("http://" + flow.Addr() + "/callback?code=good-code&state=" + stateFrom(t, authURL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Authorization Complete")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	token, err := flow.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "flow-access", token.AccessToken)
	assert.Equal(t, oauth.StateAuthorized, flow.manager.State())
}

func TestFlowRejectsStateMismatch(t *testing.T) {
	endpoint := newTokenEndpoint(t)
	flow := newTestFlow(t, endpoint.URL)

	_, err := flow.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + flow.Addr() + "/callback?code=good-code&state=forged")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Authorization Failed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = flow.Wait(ctx)
	assert.ErrorContains(t, err, "state mismatch")
	assert.Equal(t, oauth.StateUnauthenticated, flow.manager.State())
}

func TestFlowSurfacesProviderDenial(t *testing.T) {
	endpoint := newTokenEndpoint(t)
	flow := newTestFlow(t, endpoint.URL)

	_, err := flow.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + flow.Addr() + "/callback?error=access_denied&error_description=user+said+no")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = flow.Wait(ctx)
	assert.ErrorContains(t, err, "access_denied")
	assert.ErrorContains(t, err, "user said no")
}

func TestFlowRejectsCallbackWithoutCode(t *testing.T) {
	endpoint := newTokenEndpoint(t)
	flow := newTestFlow(t, endpoint.URL)

	authURL, err := flow.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + flow.Addr() + "/callback?state=" + stateFrom(t, authURL))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = flow.Wait(ctx)
	assert.ErrorContains(t, err, "no authorization code")
}

func TestFlowSurfacesExchangeFailure(t *testing.T) {
	endpoint := newTokenEndpoint(t)
	flow := newTestFlow(t, endpoint.URL)

	authURL, err := flow.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + flow.Addr() + "/callback?code=reused-code&state=" + stateFrom(t, authURL))
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = flow.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, oauth.ErrInvalidGrant, oauth.CodeOf(err))
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	endpoint := newTokenEndpoint(t)
	flow := newTestFlow(t, endpoint.URL)

	_, err := flow.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = flow.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartInvokesBrowserOpener(t *testing.T) {
	endpoint := newTokenEndpoint(t)
	manager, err := oauth.NewManager(oauth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://127.0.0.1:0/callback",
		TokenURL:     endpoint.URL,
	})
	require.NoError(t, err)

	var opened string
	flow, err := New(Config{
		Manager:     manager,
		RedirectURI: "http://127.0.0.1:0/callback",
		OpenBrowser: func(u string) error {
			opened = u
			return nil
		},
	})
	require.NoError(t, err)

	authURL, err := flow.Start()
	require.NoError(t, err)
	defer flow.shutdown()

	assert.Equal(t, authURL, opened)
	assert.True(t, strings.HasPrefix(opened, oauth.DefaultAuthorizeURL))
}
