// ABOUTME: Tests for the HTTP JWT middleware
// ABOUTME: Covers missing/invalid headers, disabled verification, and subject propagation

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSubjectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(SubjectFromContext(r.Context())))
	})
}

func TestMiddlewareAllowsValidToken(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	token, err := v.Generate("client-1", time.Hour)
	require.NoError(t, err)

	handler := HTTPAuthMiddleware(v)(echoSubjectHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-1", rec.Body.String())
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	handler := HTTPAuthMiddleware(NewJWTVerifier([]byte("test-secret")))(echoSubjectHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	handler := HTTPAuthMiddleware(NewJWTVerifier([]byte("test-secret")))(echoSubjectHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	handler := HTTPAuthMiddleware(NewJWTVerifier([]byte("test-secret")))(echoSubjectHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareDisabledWithNilVerifier(t *testing.T) {
	handler := HTTPAuthMiddleware(nil)(echoSubjectHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
