package pkce_test

import (
	"regexp"
	"testing"

	"github.com/indiemcp/micropub-bridge/pkce"
	"github.com/stretchr/testify/require"
)

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestGenerateCodeChallenge(t *testing.T) {
	t.Run("RFC 7636 test vector", func(t *testing.T) {
		challenge := pkce.GenerateCodeChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
		require.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", challenge)
	})

	t.Run("deterministic", func(t *testing.T) {
		verifier, err := pkce.GenerateCodeVerifier()
		require.NoError(t, err)

		first := pkce.GenerateCodeChallenge(verifier)
		second := pkce.GenerateCodeChallenge(verifier)
		require.Equal(t, first, second)
		require.Len(t, first, 43)
		require.Regexp(t, urlSafe, first)
	})
}

func TestGenerateCodeVerifier(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		verifier, err := pkce.GenerateCodeVerifier()
		require.NoError(t, err)
		require.Len(t, verifier, 43)
		require.Regexp(t, urlSafe, verifier)
		require.False(t, seen[verifier], "verifier repeated after %d draws", i)
		seen[verifier] = true
	}
}

func TestGenerateState(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		state, err := pkce.GenerateState()
		require.NoError(t, err)
		require.Len(t, state, 22)
		require.Regexp(t, urlSafe, state)
		require.False(t, seen[state], "state repeated after %d draws", i)
		seen[state] = true
	}
}
