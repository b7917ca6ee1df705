package accesspoint

import (
	"crypto/hmac"
	"crypto/sha1"
)

// sessionKeys are the symmetric keys derived from the handshake: the
// challenge answer proving key agreement, and one Shannon key per
// direction.
type sessionKeys struct {
	challenge [20]byte
	sendKey   [32]byte
	recvKey   [32]byte
}

// expandKeys stretches the shared secret over both hello packets with an
// HMAC-SHA1 counter expansion. Both sides run the same expansion, so a
// matching challenge proves the secrets agree before any credential is
// sent.
func expandKeys(sharedSecret, clientHello, serverHello []byte) sessionKeys {
	var material []byte
	for i := byte(1); i <= 5; i++ {
		mac := hmac.New(sha1.New, sharedSecret)
		mac.Write(clientHello)
		mac.Write(serverHello)
		mac.Write([]byte{i})
		material = mac.Sum(material)
	}

	var keys sessionKeys
	mac := hmac.New(sha1.New, material[:20])
	mac.Write(clientHello)
	mac.Write(serverHello)
	copy(keys.challenge[:], mac.Sum(nil))
	copy(keys.sendKey[:], material[20:52])
	copy(keys.recvKey[:], material[52:84])
	return keys
}
