package decode

import (
	"fmt"
	"io"
	"time"

	"github.com/jfreymuth/oggvorbis"

	"github.com/isaaclins/psst/internal/domain"
)

// vorbisSource decodes an Ogg Vorbis stream. Mono streams are upmixed to
// stereo; anything beyond two channels is unsupported.
type vorbisSource struct {
	reader  *oggvorbis.Reader
	scratch []float32
}

func newVorbisSource(src io.Reader) (*vorbisSource, error) {
	reader, err := oggvorbis.NewReader(src)
	if err != nil {
		return nil, domain.NewProtocolError("decode_vorbis", "invalid ogg vorbis stream", err)
	}
	if reader.Channels() < 1 || reader.Channels() > 2 {
		return nil, fmt.Errorf("%w: %d channels", domain.ErrUnsupportedFormat, reader.Channels())
	}
	return &vorbisSource{reader: reader}, nil
}

func (s *vorbisSource) ReadSamples(buf []float32) (int, error) {
	if s.reader.Channels() == 2 {
		// The reader returns whole frames of interleaved samples.
		return s.reader.Read(buf[:len(buf)&^1])
	}
	return upmixMono(buf, s.reader.Read, &s.scratch)
}

func (s *vorbisSource) Position() time.Duration {
	return framesToDuration(s.reader.Position(), s.reader.SampleRate())
}

func (s *vorbisSource) Duration() time.Duration {
	return framesToDuration(s.reader.Length(), s.reader.SampleRate())
}

// SampleRate returns the stream's native sample rate.
func (s *vorbisSource) SampleRate() int {
	return s.reader.SampleRate()
}

func framesToDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 || frames <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
