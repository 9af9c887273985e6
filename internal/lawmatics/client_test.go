// ABOUTME: Tests for the Lawmatics API client
// ABOUTME: Covers bearer auth, query building, and the 401 refresh-and-retry path

package lawmatics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexops/lawmatics-mcp/internal/oauth"
)

// stubTokens is a TokenSource with scriptable behavior.
type stubTokens struct {
	mu          sync.Mutex
	accessToken string
	ensures     int
	refreshes   int
	refreshErr  error
	onRefresh   func()
}

func (s *stubTokens) EnsureValid(_ context.Context) (*oauth.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensures++
	return s.token(), nil
}

func (s *stubTokens) Refresh(_ context.Context) (*oauth.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	if s.onRefresh != nil {
		s.onRefresh()
	}
	return s.token(), nil
}

func (s *stubTokens) token() *oauth.Token {
	return &oauth.Token{
		AccessToken:  s.accessToken,
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func (s *stubTokens) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens *stubTokens) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Tokens: tokens})
	require.NoError(t, err)
	return c
}

func TestSearchContactsBuildsQuery(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	var gotAuth string
	tokens := &stubTokens{accessToken: "tok-1"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":[],"total":0}`))
	}, tokens)

	_, err := c.SearchContacts(context.Background(), ContactSearch{
		Name:  "Smith",
		Phone: "555-0100",
		Limit: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, "/contacts", gotPath)
	assert.Equal(t, "Smith", gotQuery.Get("name"))
	assert.Equal(t, "555-0100", gotQuery.Get("phone"))
	assert.Equal(t, "20", gotQuery.Get("limit"))
	assert.Empty(t, gotQuery.Get("email"), "empty filters must be omitted")
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestCreateContactPostsJSON(t *testing.T) {
	var gotBody map[string]any
	var gotMethod string
	tokens := &stubTokens{accessToken: "tok-1"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"c-1"}`))
	}, tokens)

	result, err := c.CreateContact(context.Background(), NewContact{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Type:      "client",
		Email:     "ada@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "Ada", gotBody["first_name"])
	assert.Equal(t, "Lovelace", gotBody["last_name"])
	assert.Equal(t, "client", gotBody["type"])
	assert.NotContains(t, gotBody, "phone", "empty optional fields must be omitted")
	assert.JSONEq(t, `{"id":"c-1"}`, string(result))
}

func TestCreateContactRequiresName(t *testing.T) {
	tokens := &stubTokens{accessToken: "tok-1"}
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request must not reach the server")
	}, tokens)

	_, err := c.CreateContact(context.Background(), NewContact{FirstName: "Ada"})
	assert.Error(t, err)
}

func TestUnauthorizedRefreshesAndRetriesOnce(t *testing.T) {
	tokens := &stubTokens{accessToken: "stale"}
	tokens.onRefresh = func() { tokens.accessToken = "fresh" }

	var requests []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		requests = append(requests, auth)
		if auth != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"m-1"}`))
	}, tokens)

	result, err := c.GetMatter(context.Background(), "m-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m-1"}`, string(result))

	require.Len(t, requests, 2)
	assert.Equal(t, "Bearer stale", requests[0])
	assert.Equal(t, "Bearer fresh", requests[1])
	assert.Equal(t, 1, tokens.refreshCount())
}

func TestUnauthorizedTwiceSurfacesError(t *testing.T) {
	tokens := &stubTokens{accessToken: "always-bad"}

	var hits int
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)

	_, err := c.GetContact(context.Background(), "c-1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, 2, hits, "exactly one retry after a 401")
	assert.Equal(t, 1, tokens.refreshCount())
}

func TestUnauthorizedRefreshFailure(t *testing.T) {
	refreshErr := &oauth.AuthError{Code: oauth.ErrReauthorizationRequired, Description: "no refresh token"}
	tokens := &stubTokens{accessToken: "stale", refreshErr: refreshErr}

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)

	_, err := c.GetContact(context.Background(), "c-1")
	require.Error(t, err)
	assert.Equal(t, oauth.ErrReauthorizationRequired, oauth.CodeOf(err))
}

func TestAPIErrorIncludesBody(t *testing.T) {
	tokens := &stubTokens{accessToken: "tok-1"}
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"contact not found"}`))
	}, tokens)

	_, err := c.GetContact(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "contact not found")
}

func TestDeleteTask(t *testing.T) {
	var gotMethod, gotPath string
	tokens := &stubTokens{accessToken: "tok-1"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}, tokens)

	result, err := c.DeleteTask(context.Background(), "t-9")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/tasks/t-9", gotPath)
	assert.JSONEq(t, `{}`, string(result))
}

func TestBaseURLTrailingSlash(t *testing.T) {
	tokens := &stubTokens{accessToken: "tok-1"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users", r.URL.Path)
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", Tokens: tokens})
	require.NoError(t, err)

	_, err = c.ListUsers(context.Background())
	require.NoError(t, err)
}
