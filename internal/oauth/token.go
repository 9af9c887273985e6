// ABOUTME: Token record and lifecycle state definitions.
// ABOUTME: A record is either absent or fully populated; replacement is wholesale.

package oauth

import (
	"time"
)

// State is the token lifecycle state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthorized      State = "authorized"
	StateExpired         State = "expired"
	StateRefreshing      State = "refreshing"
	StateRevoked         State = "revoked"
)

// Token is the bearer credential issued by the Lawmatics token endpoint.
// All fields are populated on issuance; a partially filled Token is never
// stored or returned.
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	Scope        string    `json:"scope"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the token is usable at the given instant. The skew
// shaves a safety margin off the expiry so a token is refreshed slightly
// before the provider would reject it.
func (t *Token) Valid(now time.Time, skew time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return now.Add(skew).Before(t.ExpiresAt)
}

// clone returns a copy so callers never alias the manager's record.
func (t *Token) clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// tokenResponse is the wire format of a successful token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// tokenErrorResponse is the wire format of a token endpoint failure.
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// toToken validates the response and derives the expiry from the issuance
// instant. The expiry must land strictly after issuance.
func (r tokenResponse) toToken(issuedAt time.Time) (*Token, error) {
	if r.AccessToken == "" || r.RefreshToken == "" || r.ExpiresIn <= 0 {
		return nil, &AuthError{
			Code:        ErrNetwork,
			Description: "token endpoint returned an incomplete grant",
		}
	}
	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &Token{
		AccessToken:  r.AccessToken,
		TokenType:    tokenType,
		RefreshToken: r.RefreshToken,
		Scope:        r.Scope,
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(time.Duration(r.ExpiresIn) * time.Second),
	}, nil
}
