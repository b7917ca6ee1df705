// Package accesspoint implements the encrypted session with the remote
// access point: Diffie-Hellman key agreement, the Shannon channel cipher,
// the framed wire codec and credential authentication, plus the metadata
// and audio-key lookups the rest of the core issues over that channel.
package accesspoint

import (
	"crypto/rand"
	"io"
	"math/big"
)

// dhPrimeBytes is the fixed 768-bit prime both sides agree on (Oakley
// group 1). The generator is 2.
var dhPrimeBytes = []byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xc9, 0x0f, 0xda, 0xa2,
	0x21, 0x68, 0xc2, 0x34, 0xc4, 0xc6, 0x62, 0x8b, 0x80, 0xdc, 0x1c, 0xd1,
	0x29, 0x02, 0x4e, 0x08, 0x8a, 0x67, 0xcc, 0x74, 0x02, 0x0b, 0xbe, 0xa6,
	0x3b, 0x13, 0x9b, 0x22, 0x51, 0x4a, 0x08, 0x79, 0x8e, 0x34, 0x04, 0xdd,
	0xef, 0x95, 0x19, 0xb3, 0xcd, 0x3a, 0x43, 0x1b, 0x30, 0x2b, 0x0a, 0x6d,
	0xf2, 0x5f, 0x14, 0x37, 0x4f, 0xe1, 0x35, 0x6d, 0x6d, 0x51, 0xc2, 0x45,
	0xe4, 0x85, 0xb5, 0x76, 0x62, 0x5e, 0x7e, 0xc6, 0xf4, 0x4c, 0x42, 0xe9,
	0xa6, 0x3a, 0x36, 0x20, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

var (
	dhPrime     = new(big.Int).SetBytes(dhPrimeBytes)
	dhGenerator = big.NewInt(2)
)

// DHLocalKeys holds one side's ephemeral Diffie-Hellman keypair for the
// handshake. The private exponent never leaves the struct.
type DHLocalKeys struct {
	private *big.Int
	public  *big.Int
}

// GenerateDHKeys draws a fresh keypair from the given entropy source, or
// from crypto/rand when nil.
func GenerateDHKeys(random io.Reader) (*DHLocalKeys, error) {
	if random == nil {
		random = rand.Reader
	}
	private := make([]byte, 95)
	if _, err := io.ReadFull(random, private); err != nil {
		return nil, err
	}
	priv := new(big.Int).SetBytes(private)
	return &DHLocalKeys{
		private: priv,
		public:  new(big.Int).Exp(dhGenerator, priv, dhPrime),
	}, nil
}

// PublicKey returns the public key as a big-endian byte string, never
// longer than the 96-byte prime.
func (k *DHLocalKeys) PublicKey() []byte {
	return k.public.Bytes()
}

// SharedSecret computes the shared secret against the remote side's public
// key. Both parties derive the identical secret from swapped inputs; the
// computation is deterministic for fixed inputs.
func (k *DHLocalKeys) SharedSecret(remotePublic []byte) []byte {
	remote := new(big.Int).SetBytes(remotePublic)
	return new(big.Int).Exp(remote, k.private, dhPrime).Bytes()
}
