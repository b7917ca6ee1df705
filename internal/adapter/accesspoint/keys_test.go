package accesspoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandKeysIsDeterministic(t *testing.T) {
	shared := []byte("shared secret material")
	client := []byte("client hello packet")
	server := []byte("server hello packet")

	keys1 := expandKeys(shared, client, server)
	keys2 := expandKeys(shared, client, server)

	assert.Equal(t, keys1, keys2)
}

func TestExpandKeysSeparatesDirections(t *testing.T) {
	keys := expandKeys([]byte("secret"), []byte("client"), []byte("server"))

	assert.NotEqual(t, keys.sendKey, keys.recvKey,
		"send and receive keys should differ")
	assert.NotEqual(t, [20]byte{}, keys.challenge,
		"challenge should not be zero")
}

func TestExpandKeysDependsOnEveryInput(t *testing.T) {
	base := expandKeys([]byte("secret"), []byte("client"), []byte("server"))

	otherSecret := expandKeys([]byte("secre7"), []byte("client"), []byte("server"))
	otherClient := expandKeys([]byte("secret"), []byte("clien7"), []byte("server"))
	otherServer := expandKeys([]byte("secret"), []byte("client"), []byte("serve7"))

	assert.NotEqual(t, base.challenge, otherSecret.challenge)
	assert.NotEqual(t, base.challenge, otherClient.challenge)
	assert.NotEqual(t, base.challenge, otherServer.challenge)
}

func TestExpandKeysMatchesHandshakeAgreement(t *testing.T) {
	alice, err := GenerateDHKeys(nil)
	require.NoError(t, err)
	bob, err := GenerateDHKeys(nil)
	require.NoError(t, err)

	client := []byte("client hello")
	server := []byte("server hello")

	aliceKeys := expandKeys(alice.SharedSecret(bob.PublicKey()), client, server)
	bobKeys := expandKeys(bob.SharedSecret(alice.PublicKey()), client, server)

	assert.Equal(t, aliceKeys, bobKeys,
		"both parties should expand identical session keys")
}
