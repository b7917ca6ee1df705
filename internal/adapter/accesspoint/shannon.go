package accesspoint

import "math/bits"

// shannon is the stream cipher securing the session channel after the
// handshake. It produces a keystream from a 16-word nonlinear feedback
// register and accumulates a CRC of the plaintext that Finish folds into a
// per-message MAC. One instance per direction, re-nonced for every frame.
const (
	shnWords     = 16
	shnFold      = shnWords
	shnInitKonst = 0x6996c53a
	shnKeyIndex  = 13
)

type shannon struct {
	r     [shnWords]uint32 // working register
	crc   [shnWords]uint32 // accumulated plaintext CRC
	initR [shnWords]uint32 // register saved after keying, restored per nonce
	konst uint32
	sbuf  uint32 // current keystream word
	mbuf  uint32 // partial plaintext word awaiting MAC accumulation
	nbuf  int    // bits remaining in the partial word
}

func newShannon(key []byte) *shannon {
	c := &shannon{}
	c.initState()
	c.loadKey(key)
	c.konst = c.r[0]
	c.initR = c.r
	c.nbuf = 0
	return c
}

// Nonce rekeys the register for a new message. Both sides derive the nonce
// from a per-direction frame counter.
func (c *shannon) Nonce(nonce []byte) {
	c.r = c.initR
	c.konst = shnInitKonst
	c.loadKey(nonce)
	c.konst = c.r[0]
	c.nbuf = 0
}

func sbox1(w uint32) uint32 {
	w ^= bits.RotateLeft32(w, 5) | bits.RotateLeft32(w, 7)
	w ^= bits.RotateLeft32(w, 19) | bits.RotateLeft32(w, 22)
	return w
}

func sbox2(w uint32) uint32 {
	w ^= bits.RotateLeft32(w, 7) | bits.RotateLeft32(w, 22)
	w ^= bits.RotateLeft32(w, 5) | bits.RotateLeft32(w, 19)
	return w
}

// cycle clocks the register once and refreshes the keystream word.
func (c *shannon) cycle() {
	t := c.r[12] ^ c.r[13] ^ c.konst
	t = sbox1(t) ^ bits.RotateLeft32(c.r[0], 1)
	copy(c.r[:shnWords-1], c.r[1:])
	c.r[shnWords-1] = t
	t = sbox2(c.r[2] ^ c.r[15])
	c.r[0] ^= t
	c.sbuf = t ^ c.r[8] ^ c.r[12]
}

// crcFunc accumulates one plaintext word into the CRC register.
func (c *shannon) crcFunc(w uint32) {
	t := c.crc[0] ^ c.crc[2] ^ c.crc[15] ^ w
	copy(c.crc[:shnWords-1], c.crc[1:])
	c.crc[shnWords-1] = t
}

// macFunc feeds a plaintext word into both the CRC and the register, so
// the MAC depends on the stream state as well.
func (c *shannon) macFunc(w uint32) {
	c.crcFunc(w)
	c.r[shnKeyIndex] ^= w
}

func (c *shannon) initState() {
	c.r[0], c.r[1] = 1, 1
	for i := 2; i < shnWords; i++ {
		c.r[i] = c.r[i-1] + c.r[i-2]
	}
	c.konst = shnInitKonst
}

func (c *shannon) addKey(k uint32) {
	c.r[shnKeyIndex] ^= k
}

func (c *shannon) diffuse() {
	for i := 0; i < shnFold; i++ {
		c.cycle()
	}
}

// loadKey folds key material into the register a little-endian word at a
// time, then makes the loading irreversible by folding a diffused copy
// back in. The pre-diffusion copy seeds the CRC register.
func (c *shannon) loadKey(key []byte) {
	i := 0
	for ; i+4 <= len(key); i += 4 {
		c.addKey(word(key[i:]))
		c.cycle()
	}
	if i < len(key) {
		var extra [4]byte
		copy(extra[:], key[i:])
		c.addKey(word(extra[:]))
		c.cycle()
	}
	c.addKey(uint32(len(key)))
	c.cycle()

	c.crc = c.r
	c.diffuse()
	for j := 0; j < shnWords; j++ {
		c.r[j] ^= c.crc[j]
	}
}

// word reads a little-endian 32-bit word.
func word(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putWord(b []byte, w uint32) {
	b[0] = byte(w)
	b[1] = byte(w >> 8)
	b[2] = byte(w >> 16)
	b[3] = byte(w >> 24)
}

// Encrypt enciphers buf in place, accumulating the plaintext MAC.
func (c *shannon) Encrypt(buf []byte) {
	n := 0

	// Finish any partially filled word from a previous call.
	if c.nbuf != 0 {
		for c.nbuf != 0 && n < len(buf) {
			c.mbuf ^= uint32(buf[n]) << (32 - c.nbuf)
			buf[n] ^= byte(c.sbuf >> (32 - c.nbuf))
			n++
			c.nbuf -= 8
		}
		if c.nbuf != 0 {
			return
		}
		c.macFunc(c.mbuf)
	}

	for ; n+4 <= len(buf); n += 4 {
		c.cycle()
		t := word(buf[n:])
		c.macFunc(t)
		putWord(buf[n:], t^c.sbuf)
	}

	if n < len(buf) {
		c.cycle()
		c.mbuf = 0
		c.nbuf = 32
		for ; n < len(buf); n++ {
			c.mbuf ^= uint32(buf[n]) << (32 - c.nbuf)
			buf[n] ^= byte(c.sbuf >> (32 - c.nbuf))
			c.nbuf -= 8
		}
	}
}

// Decrypt deciphers buf in place, accumulating the recovered plaintext MAC.
func (c *shannon) Decrypt(buf []byte) {
	n := 0

	if c.nbuf != 0 {
		for c.nbuf != 0 && n < len(buf) {
			buf[n] ^= byte(c.sbuf >> (32 - c.nbuf))
			c.mbuf ^= uint32(buf[n]) << (32 - c.nbuf)
			n++
			c.nbuf -= 8
		}
		if c.nbuf != 0 {
			return
		}
		c.macFunc(c.mbuf)
	}

	for ; n+4 <= len(buf); n += 4 {
		c.cycle()
		t := word(buf[n:]) ^ c.sbuf
		c.macFunc(t)
		putWord(buf[n:], t)
	}

	if n < len(buf) {
		c.cycle()
		c.mbuf = 0
		c.nbuf = 32
		for ; n < len(buf); n++ {
			buf[n] ^= byte(c.sbuf >> (32 - c.nbuf))
			c.mbuf ^= uint32(buf[n]) << (32 - c.nbuf)
			c.nbuf -= 8
		}
	}
}

// Finish writes the MAC over everything processed since the last nonce.
// The register-only perturbation here cannot be reproduced by feeding more
// plaintext, which closes off extension attacks.
func (c *shannon) Finish(mac []byte) {
	if c.nbuf != 0 {
		c.macFunc(c.mbuf)
	}

	c.cycle()
	c.addKey(shnInitKonst ^ uint32(c.nbuf<<3))
	c.nbuf = 0

	for i := 0; i < shnWords; i++ {
		c.r[i] ^= c.crc[i]
	}
	c.diffuse()

	n := 0
	for n < len(mac) {
		c.cycle()
		for i := 0; i < 4 && n < len(mac); i++ {
			mac[n] = byte(c.sbuf >> (8 * i))
			n++
		}
	}
}
