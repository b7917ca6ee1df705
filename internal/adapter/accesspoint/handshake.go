package accesspoint

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/isaaclins/psst/internal/domain"
)

// Plaintext handshake, before any cipher is up:
//
//	client -> hello: 16-byte nonce + length-prefixed DH public key
//	server -> hello: 16-byte nonce + length-prefixed DH public key
//	client -> 20-byte challenge answer (HMAC over both hello packets)
//
// Each hello packet is framed with a 4-byte big-endian total length that
// includes the length field itself; both complete packets (framing
// included) feed the key expansion, so a tampered hello breaks the
// challenge.

const (
	helloNonceLen = 16
	maxHelloLen   = 4096
)

// writePlainPacket frames and sends one plaintext handshake packet,
// returning the exact bytes written for key expansion.
func writePlainPacket(w io.Writer, payload []byte) ([]byte, error) {
	packet := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(packet[:4], uint32(len(packet)))
	copy(packet[4:], payload)
	if _, err := w.Write(packet); err != nil {
		return nil, domain.NewTransportError("handshake_write", "", err)
	}
	return packet, nil
}

// readPlainPacket receives one plaintext handshake packet, returning both
// the payload and the exact bytes read for key expansion.
func readPlainPacket(r io.Reader) (payload, packet []byte, err error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, nil, domain.NewTransportError("handshake_read", "", err)
	}
	total := binary.BigEndian.Uint32(size[:])
	if total < 4 || total > maxHelloLen {
		return nil, nil, domain.NewProtocolError("handshake_read", "invalid hello length", nil)
	}
	packet = make([]byte, total)
	copy(packet, size[:])
	if _, err := io.ReadFull(r, packet[4:]); err != nil {
		return nil, nil, domain.NewProtocolError("handshake_read", "hello truncated", err)
	}
	return packet[4:], packet, nil
}

func buildHello(nonce []byte, publicKey []byte) []byte {
	var w payloadWriter
	w.writeRaw(nonce)
	w.writeBytes(publicKey)
	return w.bytes()
}

func parseHello(payload []byte) (nonce, publicKey []byte, err error) {
	r := newPayloadReader(payload)
	nonce = r.take(helloNonceLen)
	publicKey = r.readBytes()
	if err := r.finish(); err != nil {
		return nil, nil, domain.NewProtocolError("handshake_read", "malformed hello", err)
	}
	if len(publicKey) == 0 {
		return nil, nil, domain.NewProtocolError("handshake_read", "empty public key", nil)
	}
	return nonce, publicKey, nil
}

// clientHandshake runs the client side of the key agreement and sends the
// challenge answer. The server closes the connection on a bad answer, which
// surfaces as a transport error on the first encrypted read.
func clientHandshake(rw io.ReadWriter, random io.Reader) (sessionKeys, error) {
	if random == nil {
		random = rand.Reader
	}

	local, err := GenerateDHKeys(random)
	if err != nil {
		return sessionKeys{}, domain.NewTransportError("handshake_keys", "", err)
	}

	nonce := make([]byte, helloNonceLen)
	if _, err := io.ReadFull(random, nonce); err != nil {
		return sessionKeys{}, domain.NewTransportError("handshake_keys", "", err)
	}

	clientPacket, err := writePlainPacket(rw, buildHello(nonce, local.PublicKey()))
	if err != nil {
		return sessionKeys{}, err
	}

	serverPayload, serverPacket, err := readPlainPacket(rw)
	if err != nil {
		return sessionKeys{}, err
	}
	_, serverPublic, err := parseHello(serverPayload)
	if err != nil {
		return sessionKeys{}, err
	}

	shared := local.SharedSecret(serverPublic)
	keys := expandKeys(shared, clientPacket, serverPacket)

	if _, err := writePlainPacket(rw, keys.challenge[:]); err != nil {
		return sessionKeys{}, err
	}
	return keys, nil
}

// serverHandshake runs the access-point side of the key agreement and
// verifies the client's challenge answer. Send and receive keys come back
// already swapped relative to the client's view.
func serverHandshake(rw io.ReadWriter, random io.Reader) (sessionKeys, error) {
	if random == nil {
		random = rand.Reader
	}

	clientPayload, clientPacket, err := readPlainPacket(rw)
	if err != nil {
		return sessionKeys{}, err
	}
	_, clientPublic, err := parseHello(clientPayload)
	if err != nil {
		return sessionKeys{}, err
	}

	local, err := GenerateDHKeys(random)
	if err != nil {
		return sessionKeys{}, domain.NewTransportError("handshake_keys", "", err)
	}
	nonce := make([]byte, helloNonceLen)
	if _, err := io.ReadFull(random, nonce); err != nil {
		return sessionKeys{}, domain.NewTransportError("handshake_keys", "", err)
	}

	serverPacket, err := writePlainPacket(rw, buildHello(nonce, local.PublicKey()))
	if err != nil {
		return sessionKeys{}, err
	}

	shared := local.SharedSecret(clientPublic)
	keys := expandKeys(shared, clientPacket, serverPacket)

	answer, _, err := readPlainPacket(rw)
	if err != nil {
		return sessionKeys{}, err
	}
	if !hmac.Equal(answer, keys.challenge[:]) {
		return sessionKeys{}, domain.NewProtocolError("handshake_verify", "challenge mismatch", nil)
	}

	keys.sendKey, keys.recvKey = keys.recvKey, keys.sendKey
	return keys, nil
}
