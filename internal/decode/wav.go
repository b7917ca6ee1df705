package decode

import (
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/isaaclins/psst/internal/domain"
)

// wavSource decodes a PCM WAV file, scaling integer samples to float32 by
// bit depth. Mono files are upmixed to stereo.
type wavSource struct {
	decoder  *wav.Decoder
	buf      *audio.IntBuffer
	scale    float32
	frames   int64
	duration time.Duration
	scratch  []float32
}

func newWavSource(src io.ReadSeeker) (*wavSource, error) {
	decoder := wav.NewDecoder(src)
	if !decoder.IsValidFile() {
		return nil, domain.NewProtocolError("decode_wav", "invalid wav file", nil)
	}
	if decoder.NumChans < 1 || decoder.NumChans > 2 {
		return nil, fmt.Errorf("%w: %d channels", domain.ErrUnsupportedFormat, decoder.NumChans)
	}
	if decoder.BitDepth == 0 || decoder.BitDepth > 32 {
		return nil, fmt.Errorf("%w: %d-bit wav", domain.ErrUnsupportedFormat, decoder.BitDepth)
	}

	duration, err := decoder.Duration()
	if err != nil {
		duration = 0
	}

	return &wavSource{
		decoder:  decoder,
		buf:      &audio.IntBuffer{},
		scale:    float32(int64(1) << (decoder.BitDepth - 1)),
		duration: duration,
	}, nil
}

func (s *wavSource) ReadSamples(buf []float32) (int, error) {
	if s.decoder.NumChans == 2 {
		n, err := s.readInts(buf[:len(buf)&^1])
		return n, err
	}
	return upmixMono(buf, s.readInts, &s.scratch)
}

// readInts fills dst with up to len(dst) decoded samples.
func (s *wavSource) readInts(dst []float32) (int, error) {
	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return 0, domain.NewProtocolError("decode_wav", "pcm read failed", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(s.buf.Data[i]) / s.scale
	}
	s.frames += int64(n / int(s.decoder.NumChans))
	return n, nil
}

func (s *wavSource) Position() time.Duration {
	return framesToDuration(s.frames, int(s.decoder.SampleRate))
}

func (s *wavSource) Duration() time.Duration {
	return s.duration
}

// SampleRate returns the file's native sample rate.
func (s *wavSource) SampleRate() int {
	return int(s.decoder.SampleRate)
}
