package accesspoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDHKeys(t *testing.T) {
	keys, err := GenerateDHKeys(nil)
	require.NoError(t, err)

	assert.NotEmpty(t, keys.PublicKey(), "public key should not be empty")
}

func TestDHKeysDifferEachTime(t *testing.T) {
	keys1, err := GenerateDHKeys(nil)
	require.NoError(t, err)
	keys2, err := GenerateDHKeys(nil)
	require.NoError(t, err)

	assert.NotEqual(t, keys1.PublicKey(), keys2.PublicKey(),
		"random keys should be different")
}

func TestDHPublicKeyIsConsistent(t *testing.T) {
	keys, err := GenerateDHKeys(nil)
	require.NoError(t, err)

	assert.Equal(t, keys.PublicKey(), keys.PublicKey(),
		"public key should be consistent")
}

func TestDHPublicKeyLength(t *testing.T) {
	keys, err := GenerateDHKeys(nil)
	require.NoError(t, err)

	// The prime is 96 bytes, so the public key can never be longer.
	assert.LessOrEqual(t, len(keys.PublicKey()), 96,
		"public key should not exceed prime length")
}

func TestDHSharedSecretMatchesForBothParties(t *testing.T) {
	alice, err := GenerateDHKeys(nil)
	require.NoError(t, err)
	bob, err := GenerateDHKeys(nil)
	require.NoError(t, err)

	aliceShared := alice.SharedSecret(bob.PublicKey())
	bobShared := bob.SharedSecret(alice.PublicKey())

	assert.Equal(t, aliceShared, bobShared, "shared secrets should match")
	assert.NotEmpty(t, aliceShared, "shared secret should not be empty")
}

func TestDHSharedSecretIsDeterministic(t *testing.T) {
	alice, err := GenerateDHKeys(nil)
	require.NoError(t, err)
	bob, err := GenerateDHKeys(nil)
	require.NoError(t, err)

	shared1 := alice.SharedSecret(bob.PublicKey())
	shared2 := alice.SharedSecret(bob.PublicKey())

	assert.Equal(t, shared1, shared2, "shared secret should be deterministic")
}

func TestDHSharedSecretChangesWithRemoteKey(t *testing.T) {
	alice, err := GenerateDHKeys(nil)
	require.NoError(t, err)
	bob1, err := GenerateDHKeys(nil)
	require.NoError(t, err)
	bob2, err := GenerateDHKeys(nil)
	require.NoError(t, err)

	shared1 := alice.SharedSecret(bob1.PublicKey())
	shared2 := alice.SharedSecret(bob2.PublicKey())

	assert.NotEqual(t, shared1, shared2,
		"different remote keys should produce different secrets")
}

func TestDHSharedSecretWithEmptyRemoteKey(t *testing.T) {
	keys, err := GenerateDHKeys(nil)
	require.NoError(t, err)

	// Degenerate input must not panic; the result is the zero secret.
	assert.NotPanics(t, func() {
		keys.SharedSecret(nil)
	})
}
