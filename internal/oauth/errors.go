// ABOUTME: Error taxonomy for the Lawmatics OAuth token lifecycle.
// ABOUTME: Separates terminal grant failures from transient network errors.

package oauth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies token lifecycle failures.
type ErrorCode string

const (
	// ErrInvalidGrant means the authorization code or refresh token was
	// bad, expired, or already used. Not retryable; a new authorization
	// flow is required.
	ErrInvalidGrant ErrorCode = "invalid_grant"

	// ErrRedirectMismatch means the redirect URI sent to the token
	// endpoint does not match the one registered with the provider.
	// Configuration error; not retryable.
	ErrRedirectMismatch ErrorCode = "redirect_mismatch"

	// ErrNetwork is a transient transport failure. Safe to retry with backoff.
	ErrNetwork ErrorCode = "network_error"

	// ErrReauthorizationRequired is terminal for the current session:
	// the operator must repeat the manual authorization step.
	ErrReauthorizationRequired ErrorCode = "reauthorization_required"
)

// AuthError is returned by all token lifecycle operations.
type AuthError struct {
	Code        ErrorCode
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	switch {
	case e.Description != "" && e.Err != nil:
		return fmt.Sprintf("oauth: %s: %s: %v", e.Code, e.Description, e.Err)
	case e.Description != "":
		return fmt.Sprintf("oauth: %s: %s", e.Code, e.Description)
	case e.Err != nil:
		return fmt.Sprintf("oauth: %s: %v", e.Code, e.Err)
	default:
		return fmt.Sprintf("oauth: %s", e.Code)
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *AuthError) Retryable() bool {
	return e.Code == ErrNetwork
}

// CodeOf extracts the ErrorCode from err, or "" if err is not an AuthError.
func CodeOf(err error) ErrorCode {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// authErrorFromResponse maps an RFC 6749 token endpoint error payload to an
// AuthError. Lawmatics reports redirect URI problems under invalid_grant with
// a descriptive message, so the description is inspected as well.
func authErrorFromResponse(oauthCode, description string) *AuthError {
	code := ErrInvalidGrant
	switch oauthCode {
	case "invalid_redirect_uri", "redirect_uri_mismatch":
		code = ErrRedirectMismatch
	case "invalid_grant":
		if strings.Contains(strings.ToLower(description), "redirect") {
			code = ErrRedirectMismatch
		}
	}
	return &AuthError{Code: code, Description: description}
}
