// Package pkce generates the random values used to bind the two halves of an
// authorization-code flow: PKCE verifier/challenge pairs (RFC 7636) and state
// nonces.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	verifierByteLength = 32 // 43 characters once base64url-encoded
	stateByteLength    = 16 // 22 characters once base64url-encoded
)

// GenerateCodeVerifier returns a fresh PKCE code verifier: 32 bytes of
// CSPRNG randomness, base64url-encoded without padding.
func GenerateCodeVerifier() (string, error) {
	return randomURLSafe(verifierByteLength)
}

// GenerateCodeChallenge derives the S256 code challenge for a verifier:
// base64url(SHA-256(verifier)), no padding. Deterministic.
func GenerateCodeChallenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// GenerateState returns a fresh state nonce: 16 bytes of CSPRNG randomness,
// base64url-encoded without padding.
func GenerateState() (string, error) {
	return randomURLSafe(stateByteLength)
}

func randomURLSafe(byteLen int) (string, error) {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("[pkce randomURLSafe] failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
