// Package beep implements the audio output port on the beep/v2 speaker,
// which renders through oto on the desktop platforms.
//
// The speaker is a process-wide singleton, so at most one sink is active at
// a time; opening a sink at a new sample rate re-initializes the speaker.
package beep

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/ports"
)

// speakerBuffer is the device-side buffer length. Large enough to ride out
// scheduling hiccups, small enough that pause and volume feel immediate.
const speakerBuffer = 200 * time.Millisecond

// Output opens speaker-backed sinks.
type Output struct {
	logger *slog.Logger
}

var _ ports.AudioOutput = (*Output)(nil)

// NewOutput creates a speaker-backed audio output.
func NewOutput(logger *slog.Logger) *Output {
	return &Output{logger: logger}
}

// Open initializes the speaker for the given stream parameters.
func (o *Output) Open(sampleRate, channels int) (ports.AudioSink, error) {
	if channels != 2 {
		return nil, fmt.Errorf("%w: %d channels", domain.ErrUnsupportedFormat, channels)
	}

	rate := beep.SampleRate(sampleRate)
	if err := speaker.Init(rate, rate.N(speakerBuffer)); err != nil {
		return nil, domain.NewTransportError("open_output", "", err)
	}

	o.logger.Debug("speaker initialized",
		slog.Int("sample_rate", sampleRate),
		slog.Duration("buffer", speakerBuffer))

	return &sink{
		logger:     o.logger,
		sampleRate: sampleRate,
		channels:   channels,
		volume:     1.0,
	}, nil
}

// sink renders one stream through the global speaker.
type sink struct {
	logger     *slog.Logger
	sampleRate int
	channels   int

	mu     sync.Mutex
	ctrl   *beep.Ctrl
	vol    *effects.Volume
	volume float64
	closed bool
}

var _ ports.AudioSink = (*sink)(nil)

func (s *sink) SampleRate() int {
	return s.sampleRate
}

func (s *sink) Channels() int {
	return s.channels
}

// Play replaces whatever the speaker is rendering with source.
func (s *sink) Play(source ports.SampleSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrOutputClosed
	}

	s.vol = &effects.Volume{
		Streamer: &sourceStreamer{source: source},
		Base:     2,
		Volume:   volumeExponent(s.volume),
		Silent:   s.volume <= 0,
	}
	s.ctrl = &beep.Ctrl{Streamer: s.vol}

	speaker.Clear()
	speaker.Play(s.ctrl)
	return nil
}

func (s *sink) Pause() error {
	return s.setPaused(true)
}

func (s *sink) Resume() error {
	return s.setPaused(false)
}

func (s *sink) setPaused(paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrOutputClosed
	}
	if s.ctrl == nil {
		return nil
	}

	speaker.Lock()
	s.ctrl.Paused = paused
	speaker.Unlock()
	return nil
}

func (s *sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrOutputClosed
	}

	speaker.Clear()
	s.ctrl = nil
	s.vol = nil
	return nil
}

// SetVolume maps the linear 0..1 scale onto the speaker's logarithmic one.
func (s *sink) SetVolume(volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrOutputClosed
	}

	s.volume = volume
	if s.vol != nil {
		speaker.Lock()
		s.vol.Volume = volumeExponent(volume)
		s.vol.Silent = volume <= 0
		speaker.Unlock()
	}
	return nil
}

// Close silences the speaker. The device context stays initialized so a
// later Open at another sample rate can reuse it.
func (s *sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.ctrl = nil
	s.vol = nil
	speaker.Clear()
	return nil
}

// volumeExponent converts a linear 0..1 volume into a base-2 exponent for
// effects.Volume: 1.0 maps to unity gain, 0.5 to half amplitude.
func volumeExponent(volume float64) float64 {
	if volume <= 0 {
		return 0 // Silent flag carries the muting
	}
	return math.Log2(volume)
}

// sourceStreamer adapts a pull-based sample source to a beep streamer.
// The speaker calls Stream on its own thread.
type sourceStreamer struct {
	source ports.SampleSource
	buf    []float32
	err    error
	done   bool
}

func (st *sourceStreamer) Stream(samples [][2]float64) (int, bool) {
	if st.done {
		return 0, false
	}

	want := len(samples) * 2
	if cap(st.buf) < want {
		st.buf = make([]float32, want)
	}
	buf := st.buf[:want]

	n, err := st.source.ReadSamples(buf)
	n &^= 1 // whole frames only
	for i := 0; i < n; i += 2 {
		samples[i/2] = [2]float64{float64(buf[i]), float64(buf[i+1])}
	}

	if err != nil {
		st.done = true
		if err != io.EOF {
			st.err = err
		}
		return n / 2, n > 0
	}

	// A short read without EOF is an underrun; pad with silence so the
	// device keeps flowing instead of treating the stream as drained.
	for i := n / 2; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (st *sourceStreamer) Err() error {
	return st.err
}
