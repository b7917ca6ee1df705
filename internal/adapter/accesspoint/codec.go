package accesspoint

import (
	"crypto/subtle"
	"encoding/binary"
	"io"

	"github.com/isaaclins/psst/internal/domain"
)

// Frame commands carried on the encrypted channel.
const (
	cmdAuthRequest     = 0xab
	cmdAuthAccepted    = 0xac
	cmdAuthRejected    = 0xad
	cmdTrackRequest    = 0x20
	cmdTrackResponse   = 0x21
	cmdEpisodeRequest  = 0x22
	cmdEpisodeResponse = 0x23
	cmdKeyRequest      = 0x0c
	cmdKeySuccess      = 0x0d
	cmdKeyFailure      = 0x0e
	cmdURLRequest      = 0x30
	cmdURLResponse     = 0x31
	cmdErrorResponse   = 0x3f
	cmdPing            = 0x04
	cmdPong            = 0x49
)

const (
	frameHeaderLen  = 3 // 1-byte command, 2-byte big-endian payload length
	frameMacLen     = 4
	maxFramePayload = 0xffff
)

// frameEncoder writes Shannon-encrypted frames. The nonce is the frame
// counter, so both sides must observe every frame in order.
type frameEncoder struct {
	w      io.Writer
	cipher *shannon
	seq    uint32
}

func newFrameEncoder(w io.Writer, key []byte) *frameEncoder {
	return &frameEncoder{w: w, cipher: newShannon(key)}
}

// WriteFrame encrypts and sends one command frame with its MAC.
func (e *frameEncoder) WriteFrame(cmd byte, payload []byte) error {
	if len(payload) > maxFramePayload {
		return domain.NewProtocolError("write_frame", "payload exceeds frame limit", nil)
	}

	var nonce [4]byte
	binary.BigEndian.PutUint32(nonce[:], e.seq)
	e.seq++
	e.cipher.Nonce(nonce[:])

	buf := make([]byte, frameHeaderLen+len(payload)+frameMacLen)
	buf[0] = cmd
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(payload)))
	copy(buf[frameHeaderLen:], payload)

	body := buf[:frameHeaderLen+len(payload)]
	e.cipher.Encrypt(body)
	e.cipher.Finish(buf[len(body):])

	if _, err := e.w.Write(buf); err != nil {
		return domain.NewTransportError("write_frame", "", err)
	}
	return nil
}

// frameDecoder reads Shannon-encrypted frames, verifying each MAC before
// the payload is surfaced.
type frameDecoder struct {
	r      io.Reader
	cipher *shannon
	seq    uint32
}

func newFrameDecoder(r io.Reader, key []byte) *frameDecoder {
	return &frameDecoder{r: r, cipher: newShannon(key)}
}

// ReadFrame receives and decrypts one command frame. A MAC mismatch or a
// short read of the framed layout is a protocol violation, not a transport
// failure.
func (d *frameDecoder) ReadFrame() (byte, []byte, error) {
	var nonce [4]byte
	binary.BigEndian.PutUint32(nonce[:], d.seq)
	d.seq++
	d.cipher.Nonce(nonce[:])

	var header [frameHeaderLen]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		return 0, nil, domain.NewTransportError("read_frame", "", err)
	}
	d.cipher.Decrypt(header[:])

	cmd := header[0]
	size := int(binary.BigEndian.Uint16(header[1:3]))

	payload := make([]byte, size)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return 0, nil, domain.NewProtocolError("read_frame", "frame truncated", err)
	}
	d.cipher.Decrypt(payload)

	var mac, expected [frameMacLen]byte
	if _, err := io.ReadFull(d.r, mac[:]); err != nil {
		return 0, nil, domain.NewProtocolError("read_frame", "frame missing mac", err)
	}
	d.cipher.Finish(expected[:])
	if subtle.ConstantTimeCompare(mac[:], expected[:]) != 1 {
		return 0, nil, domain.NewProtocolError("read_frame", "mac mismatch", nil)
	}
	return cmd, payload, nil
}
