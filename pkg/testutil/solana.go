package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// GenerateSolanaKeys returns n distinct random public keys.
func GenerateSolanaKeys(t testing.TB, n int) []ed25519.PublicKey {
	t.Helper()

	keys := make([]ed25519.PublicKey, 0, n)
	seen := make(map[string]struct{}, n)
	for len(keys) < n {
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		if _, ok := seen[string(pub)]; ok {
			continue
		}
		seen[string(pub)] = struct{}{}
		keys = append(keys, pub)
	}
	return keys
}
