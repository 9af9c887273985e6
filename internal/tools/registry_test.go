// ABOUTME: Tests for the tool registry and its Lawmatics-backed handlers
// ABOUTME: Exercises dispatch, limit clamping, argument validation, and defaults

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexops/lawmatics-mcp/internal/lawmatics"
	"github.com/lexops/lawmatics-mcp/internal/oauth"
)

type staticTokens struct{}

func (staticTokens) EnsureValid(_ context.Context) (*oauth.Token, error) {
	return &oauth.Token{
		AccessToken:  "test-token",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (s staticTokens) Refresh(ctx context.Context) (*oauth.Token, error) {
	return s.EnsureValid(ctx)
}

// apiCapture records the last request the fake API received.
type apiCapture struct {
	method string
	path   string
	query  url.Values
	body   map[string]any
}

func newTestRegistry(t *testing.T, capture *apiCapture) *Registry {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capture.method = r.Method
		capture.path = r.URL.Path
		capture.query = r.URL.Query()
		capture.body = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&capture.body)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	client, err := lawmatics.NewClient(lawmatics.Config{BaseURL: srv.URL, Tokens: staticTokens{}})
	require.NoError(t, err)

	reg, err := NewRegistry(Config{
		Client:    client,
		Version:   "1.2.3",
		AuthState: func() string { return "authorized" },
	})
	require.NoError(t, err)
	return reg
}

func TestRegistryListsAllTools(t *testing.T) {
	reg := newTestRegistry(t, &apiCapture{})

	defs := reg.List()
	assert.Len(t, defs, 22)

	names := make(map[string]bool, len(defs))
	for _, d := range defs {
		names[d.Name] = true
		assert.NotEmpty(t, d.Description, "tool %s needs a description", d.Name)
		assert.True(t, json.Valid(d.InputSchema), "tool %s schema must be valid JSON", d.Name)
	}

	for _, want := range []string{
		"search_contacts", "search_matters", "search_tasks", "search_companies",
		"search_time_entries", "search_expenses",
		"get_contact", "get_matter", "get_task", "get_company",
		"get_time_entry", "get_expense", "get_user", "list_users",
		"create_contact", "update_contact", "create_task", "update_task",
		"delete_task", "create_time_entry", "create_expense",
		"status",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestCallUnknownTool(t *testing.T) {
	reg := newTestRegistry(t, &apiCapture{})

	_, err := reg.Call(context.Background(), "no_such_tool", nil)
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestSearchContactsPassesFilters(t *testing.T) {
	capture := &apiCapture{}
	reg := newTestRegistry(t, capture)

	_, err := reg.Call(context.Background(), "search_contacts",
		json.RawMessage(`{"name":"Smith","phone":"555-0100","limit":50}`))
	require.NoError(t, err)

	assert.Equal(t, "/contacts", capture.path)
	assert.Equal(t, "Smith", capture.query.Get("name"))
	assert.Equal(t, "555-0100", capture.query.Get("phone"))
	assert.Equal(t, "50", capture.query.Get("limit"))
}

func TestSearchLimitClamping(t *testing.T) {
	capture := &apiCapture{}
	reg := newTestRegistry(t, capture)

	// Missing limit defaults to 20.
	_, err := reg.Call(context.Background(), "search_matters", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "20", capture.query.Get("limit"))

	// Oversized limit is clamped to 100.
	_, err = reg.Call(context.Background(), "search_matters", json.RawMessage(`{"limit":5000}`))
	require.NoError(t, err)
	assert.Equal(t, "100", capture.query.Get("limit"))
}

func TestGetContactRequiresID(t *testing.T) {
	reg := newTestRegistry(t, &apiCapture{})

	_, err := reg.Call(context.Background(), "get_contact", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact_id")
}

func TestGetContactFetchesByID(t *testing.T) {
	capture := &apiCapture{}
	reg := newTestRegistry(t, capture)

	result, err := reg.Call(context.Background(), "get_contact", json.RawMessage(`{"contact_id":"c-42"}`))
	require.NoError(t, err)
	assert.Equal(t, "/contacts/c-42", capture.path)
	assert.JSONEq(t, `{"ok":true}`, string(result))
}

func TestCreateContactDefaultsType(t *testing.T) {
	capture := &apiCapture{}
	reg := newTestRegistry(t, capture)

	_, err := reg.Call(context.Background(), "create_contact",
		json.RawMessage(`{"first_name":"Ada","last_name":"Lovelace"}`))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, capture.method)
	assert.Equal(t, "/contacts", capture.path)
	assert.Equal(t, "lead", capture.body["type"])
}

func TestCreateTimeEntryBillableDefault(t *testing.T) {
	capture := &apiCapture{}
	reg := newTestRegistry(t, capture)

	_, err := reg.Call(context.Background(), "create_time_entry",
		json.RawMessage(`{"matter_id":"m-1","duration":1.5,"description":"drafting","date":"2026-08-01"}`))
	require.NoError(t, err)
	assert.Equal(t, true, capture.body["billable"])

	_, err = reg.Call(context.Background(), "create_time_entry",
		json.RawMessage(`{"matter_id":"m-1","duration":1.5,"description":"drafting","date":"2026-08-01","billable":false}`))
	require.NoError(t, err)
	assert.Equal(t, false, capture.body["billable"])
}

func TestDeleteTaskHitsEndpoint(t *testing.T) {
	capture := &apiCapture{}
	reg := newTestRegistry(t, capture)

	_, err := reg.Call(context.Background(), "delete_task", json.RawMessage(`{"task_id":"t-7"}`))
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, capture.method)
	assert.Equal(t, "/tasks/t-7", capture.path)
}

func TestUpdateTaskSendsOnlyProvidedFields(t *testing.T) {
	capture := &apiCapture{}
	reg := newTestRegistry(t, capture)

	_, err := reg.Call(context.Background(), "update_task",
		json.RawMessage(`{"task_id":"t-7","status":"completed"}`))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, capture.method)
	assert.Equal(t, "/tasks/t-7", capture.path)
	assert.Equal(t, "completed", capture.body["status"])
	assert.NotContains(t, capture.body, "title")
}

func TestStatusTool(t *testing.T) {
	reg := newTestRegistry(t, &apiCapture{})

	result, err := reg.Call(context.Background(), "status", nil)
	require.NoError(t, err)

	var status map[string]any
	require.NoError(t, json.Unmarshal(result, &status))
	assert.Equal(t, "healthy", status["status"])
	assert.Equal(t, "1.2.3", status["version"])

	server, ok := status["server"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "authorized", server["auth_state"])
	assert.Equal(t, float64(22), server["tools_available"])
}

func TestInvalidArguments(t *testing.T) {
	reg := newTestRegistry(t, &apiCapture{})

	_, err := reg.Call(context.Background(), "search_contacts", json.RawMessage(`[1,2,3]`))
	assert.Error(t, err)
}
