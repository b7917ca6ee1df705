package accesspoint

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaaclins/psst/internal/domain"
)

func TestFrameCodecRoundTrip(t *testing.T) {
	key := []byte("frame codec key for both sides..")
	var wire bytes.Buffer

	enc := newFrameEncoder(&wire, key)
	require.NoError(t, enc.WriteFrame(cmdTrackRequest, []byte("payload one")))
	require.NoError(t, enc.WriteFrame(cmdKeyRequest, []byte("payload two")))

	dec := newFrameDecoder(&wire, key)

	cmd, payload, err := dec.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte(cmdTrackRequest), cmd)
	assert.Equal(t, []byte("payload one"), payload)

	cmd, payload, err = dec.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte(cmdKeyRequest), cmd)
	assert.Equal(t, []byte("payload two"), payload)
}

func TestFrameCodecEmptyPayload(t *testing.T) {
	key := []byte("frame codec key for both sides..")
	var wire bytes.Buffer

	enc := newFrameEncoder(&wire, key)
	require.NoError(t, enc.WriteFrame(cmdPing, nil))

	dec := newFrameDecoder(&wire, key)
	cmd, payload, err := dec.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte(cmdPing), cmd)
	assert.Empty(t, payload)
}

func TestFrameCodecDetectsTampering(t *testing.T) {
	key := []byte("frame codec key for both sides..")
	var wire bytes.Buffer

	enc := newFrameEncoder(&wire, key)
	require.NoError(t, enc.WriteFrame(cmdTrackRequest, []byte("authentic payload")))

	raw := wire.Bytes()
	raw[frameHeaderLen+2] ^= 0x40

	dec := newFrameDecoder(bytes.NewReader(raw), key)
	_, _, err := dec.ReadFrame()
	require.Error(t, err)

	var perr *domain.ProtocolError
	assert.ErrorAs(t, err, &perr, "a flipped bit should fail as a protocol error")
}

func TestFrameCodecRejectsTruncatedFrame(t *testing.T) {
	key := []byte("frame codec key for both sides..")
	var wire bytes.Buffer

	enc := newFrameEncoder(&wire, key)
	require.NoError(t, enc.WriteFrame(cmdTrackRequest, []byte("cut short")))

	raw := wire.Bytes()
	dec := newFrameDecoder(bytes.NewReader(raw[:len(raw)-3]), key)
	_, _, err := dec.ReadFrame()
	require.Error(t, err)

	var perr *domain.ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestFrameCodecWrongKeyFails(t *testing.T) {
	var wire bytes.Buffer

	enc := newFrameEncoder(&wire, []byte("the key used by the sender......"))
	require.NoError(t, enc.WriteFrame(cmdTrackRequest, []byte("secret payload")))

	dec := newFrameDecoder(&wire, []byte("a different key on the receiver."))
	_, _, err := dec.ReadFrame()
	require.Error(t, err, "mismatched keys should never verify")
}

func TestFrameCodecNonceOrderMatters(t *testing.T) {
	key := []byte("frame codec key for both sides..")
	var wire bytes.Buffer

	enc := newFrameEncoder(&wire, key)
	require.NoError(t, enc.WriteFrame(cmdTrackRequest, []byte("first")))
	require.NoError(t, enc.WriteFrame(cmdTrackRequest, []byte("second")))

	// Skip the first frame on the wire; the decoder's nonce counter is now
	// out of step and the second frame must not verify.
	raw := wire.Bytes()
	firstLen := frameHeaderLen + len("first") + frameMacLen

	dec := newFrameDecoder(bytes.NewReader(raw[firstLen:]), key)
	_, _, err := dec.ReadFrame()
	require.Error(t, err, "frames must be observed in order")
}

func TestFrameCodecRejectsOversizedPayload(t *testing.T) {
	key := []byte("frame codec key for both sides..")
	var wire bytes.Buffer

	enc := newFrameEncoder(&wire, key)
	err := enc.WriteFrame(cmdTrackRequest, make([]byte, maxFramePayload+1))
	require.Error(t, err)

	var perr *domain.ProtocolError
	assert.ErrorAs(t, err, &perr)
}
