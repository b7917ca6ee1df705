package decode

import (
	"encoding/binary"
	"io"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/isaaclins/psst/internal/domain"
)

// mp3Source decodes an MP3 stream. The decoder always yields 16-bit
// little-endian stereo PCM, converted here to float32.
type mp3Source struct {
	decoder   *mp3.Decoder
	bytesRead int64
	scratch   []byte
}

func newMP3Source(src io.Reader) (*mp3Source, error) {
	decoder, err := mp3.NewDecoder(src)
	if err != nil {
		return nil, domain.NewProtocolError("decode_mp3", "invalid mp3 stream", err)
	}
	return &mp3Source{decoder: decoder}, nil
}

func (s *mp3Source) ReadSamples(buf []float32) (int, error) {
	want := len(buf) * 2 // two bytes per sample
	if cap(s.scratch) < want {
		s.scratch = make([]byte, want)
	}
	raw := s.scratch[:want]

	n, err := s.decoder.Read(raw)
	n &^= 1 // whole 16-bit samples only
	for i := 0; i < n; i += 2 {
		v := int16(binary.LittleEndian.Uint16(raw[i:]))
		buf[i/2] = float32(v) / 32768
	}
	s.bytesRead += int64(n)
	return n / 2, err
}

func (s *mp3Source) Position() time.Duration {
	// Four bytes per stereo frame.
	return framesToDuration(s.bytesRead/4, s.decoder.SampleRate())
}

func (s *mp3Source) Duration() time.Duration {
	return framesToDuration(s.decoder.Length()/4, s.decoder.SampleRate())
}

// SampleRate returns the stream's native sample rate.
func (s *mp3Source) SampleRate() int {
	return s.decoder.SampleRate()
}
