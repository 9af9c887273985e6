// ABOUTME: Tests for PKCE verifier and challenge generation.
// ABOUTME: Checks length, alphabet, S256 derivation, and uniqueness.

package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePKCE(t *testing.T) {
	verifier, challenge, err := generatePKCE()
	require.NoError(t, err)

	assert.Len(t, verifier, 43, "32 random bytes base64url-encode to 43 chars")

	decoded, err := base64.RawURLEncoding.DecodeString(verifier)
	require.NoError(t, err, "verifier must be unpadded base64url")
	assert.Len(t, decoded, 32)

	digest := sha256.Sum256([]byte(verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(digest[:]), challenge)
}

func TestGeneratePKCEUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		verifier, _, err := generatePKCE()
		require.NoError(t, err)
		assert.False(t, seen[verifier], "verifiers must never repeat")
		seen[verifier] = true
	}
}
