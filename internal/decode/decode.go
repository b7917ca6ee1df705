// Package decode turns encoded audio streams into pull-based sample
// sources for the playback pipeline. CDN content is Ogg Vorbis; local
// files may also be MP3 or WAV, picked by extension.
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/ports"
)

// RateReporter is implemented by sources that know their native sample
// rate, letting the player match the output device to the stream.
type RateReporter interface {
	SampleRate() int
}

// NewSource decodes an encoded CDN stream in the given format.
func NewSource(src io.ReadSeeker, format domain.AudioFormat) (ports.SampleSource, error) {
	switch format {
	case domain.FormatOggVorbis96, domain.FormatOggVorbis160, domain.FormatOggVorbis320:
		return newVorbisSource(src)
	default:
		return nil, fmt.Errorf("%w: format %d", domain.ErrUnsupportedFormat, format)
	}
}

// OpenLocal opens and decodes a local audio file by extension. The caller
// owns the returned source; closing it closes the file.
func OpenLocal(path string) (ports.SampleSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewTransportError("open_local", path, err)
	}

	var source ports.SampleSource
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ogg", ".oga":
		source, err = newVorbisSource(f)
	case ".mp3":
		source, err = newMP3Source(f)
	case ".wav", ".wave":
		source, err = newWavSource(f)
	default:
		err = fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return &closingSource{SampleSource: source, closer: f}, nil
}

// closingSource closes the backing file when the stream is done with.
type closingSource struct {
	ports.SampleSource
	closer io.Closer
}

func (s *closingSource) Close() error { return s.closer.Close() }

// SampleRate forwards the wrapped source's native rate.
func (s *closingSource) SampleRate() int {
	if r, ok := s.SampleSource.(RateReporter); ok {
		return r.SampleRate()
	}
	return 0
}

// upmixMono duplicates mono samples into interleaved stereo. The scratch
// buffer is reused between calls. Returns the stereo sample count.
func upmixMono(dst []float32, read func(mono []float32) (int, error), scratch *[]float32) (int, error) {
	frames := len(dst) / 2
	if cap(*scratch) < frames {
		*scratch = make([]float32, frames)
	}
	mono := (*scratch)[:frames]

	n, err := read(mono)
	for i := 0; i < n; i++ {
		dst[2*i] = mono[i]
		dst[2*i+1] = mono[i]
	}
	return n * 2, err
}
