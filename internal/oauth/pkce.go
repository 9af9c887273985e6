// ABOUTME: PKCE (RFC 7636) verifier and S256 challenge generation.
// ABOUTME: Verifiers live in memory for a single flow and are never reused.

package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const pkceMethodS256 = "S256"

// generatePKCE returns a fresh 43-character base64url verifier and its
// SHA-256 code challenge.
func generatePKCE() (verifier, challenge string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating PKCE verifier: %w", err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(buf)
	digest := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(digest[:])
	return verifier, challenge, nil
}
