// Package mock provides a mock implementation of the audio output port.
// This is used for testing the player without a real audio device: tests
// drive the device-side sample pull explicitly via Drain.
package mock

import (
	"io"
	"sync"

	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/ports"
)

// Output is a mock audio output factory. Every sink it opens is retained so
// tests can inspect it after the code under test has moved on.
//
// Thread-safety: This implementation is thread-safe.
type Output struct {
	mu    sync.Mutex
	sinks []*Sink

	// Behavior configuration (for testing error scenarios)
	failOpen bool
}

var _ ports.AudioOutput = (*Output)(nil)

// NewOutput creates a new mock audio output.
func NewOutput() *Output {
	return &Output{}
}

// SetFailOpen configures the mock to fail opening sinks (for testing).
func (o *Output) SetFailOpen(fail bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failOpen = fail
}

// Open opens a new mock sink for the given stream parameters.
func (o *Output) Open(sampleRate, channels int) (ports.AudioSink, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.failOpen {
		return nil, domain.NewTransportError("open_output", "", io.ErrClosedPipe)
	}

	sink := &Sink{
		sampleRate: sampleRate,
		channels:   channels,
		volume:     1.0,
	}
	o.sinks = append(o.sinks, sink)
	return sink, nil
}

// OpenCount returns how many sinks have been opened.
func (o *Output) OpenCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sinks)
}

// LastSink returns the most recently opened sink, or nil.
func (o *Output) LastSink() *Sink {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sinks) == 0 {
		return nil
	}
	return o.sinks[len(o.sinks)-1]
}

// Sink is a mock audio sink. It renders nothing; instead, tests pull samples
// from the active source with Drain, standing in for the device callback.
//
// Thread-safety: This implementation is thread-safe.
type Sink struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	source     ports.SampleSource
	playing    bool
	paused     bool
	closed     bool
	volume     float64
	captured   []float32

	// Call counters
	playCalls   int
	pauseCalls  int
	resumeCalls int
	stopCalls   int

	// Behavior configuration (for testing error scenarios)
	failPlay      bool
	failPause     bool
	failResume    bool
	failStop      bool
	failSetVolume bool
}

var _ ports.AudioSink = (*Sink)(nil)

// SetFailPlay configures the sink to fail Play calls (for testing).
func (s *Sink) SetFailPlay(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPlay = fail
}

// SetFailPause configures the sink to fail Pause calls (for testing).
func (s *Sink) SetFailPause(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPause = fail
}

// SetFailResume configures the sink to fail Resume calls (for testing).
func (s *Sink) SetFailResume(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failResume = fail
}

// SetFailStop configures the sink to fail Stop calls (for testing).
func (s *Sink) SetFailStop(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStop = fail
}

// SetFailSetVolume configures the sink to fail SetVolume calls (for testing).
func (s *Sink) SetFailSetVolume(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSetVolume = fail
}

// SampleRate returns the sample rate the sink was opened with.
func (s *Sink) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}

// Channels returns the channel count the sink was opened with.
func (s *Sink) Channels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels
}

// Play starts pulling from source. A second Play replaces the active source.
func (s *Sink) Play(source ports.SampleSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrOutputClosed
	}
	if s.failPlay {
		return domain.NewTransportError("play", "", io.ErrClosedPipe)
	}

	s.source = source
	s.playing = true
	s.paused = false
	s.playCalls++
	return nil
}

// Pause suspends rendering, keeping the active source.
func (s *Sink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrOutputClosed
	}
	if s.failPause {
		return domain.NewTransportError("pause", "", io.ErrClosedPipe)
	}

	s.paused = true
	s.pauseCalls++
	return nil
}

// Resume continues rendering after a Pause.
func (s *Sink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrOutputClosed
	}
	if s.failResume {
		return domain.NewTransportError("resume", "", io.ErrClosedPipe)
	}

	s.paused = false
	s.resumeCalls++
	return nil
}

// Stop ceases rendering and releases the active source.
func (s *Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrOutputClosed
	}
	if s.failStop {
		return domain.NewTransportError("stop", "", io.ErrClosedPipe)
	}

	s.source = nil
	s.playing = false
	s.paused = false
	s.stopCalls++
	return nil
}

// SetVolume sets the output volume.
func (s *Sink) SetVolume(volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrOutputClosed
	}
	if s.failSetVolume {
		return domain.NewTransportError("set_volume", "", io.ErrClosedPipe)
	}

	s.volume = volume
	return nil
}

// Close releases the sink.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.source = nil
	s.playing = false
	s.paused = false
	return nil
}

// Drain pulls up to max samples from the active source, the way a device
// callback would, and records them. It returns the number of samples pulled
// and io.EOF once the source is exhausted. Draining a paused or stopped sink
// pulls nothing.
func (s *Sink) Drain(max int) (int, error) {
	s.mu.Lock()
	source := s.source
	active := s.playing && !s.paused && !s.closed
	s.mu.Unlock()

	if source == nil || !active {
		return 0, nil
	}

	buf := make([]float32, max)
	n, err := source.ReadSamples(buf)

	s.mu.Lock()
	s.captured = append(s.captured, buf[:n]...)
	s.mu.Unlock()
	return n, err
}

// DrainAll pulls from the active source until it reports io.EOF.
func (s *Sink) DrainAll() error {
	for {
		n, err := s.Drain(2048)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			// Idle sink or an underrunning source; either way there is
			// nothing more to pull right now.
			return nil
		}
	}
}

// Playing reports whether the sink has an active source.
func (s *Sink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Paused reports whether the sink is paused.
func (s *Sink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Closed reports whether the sink has been closed.
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Volume returns the last volume set on the sink.
func (s *Sink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Source returns the active sample source, or nil.
func (s *Sink) Source() ports.SampleSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Captured returns a copy of every sample pulled through Drain.
func (s *Sink) Captured() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float32, len(s.captured))
	copy(out, s.captured)
	return out
}

// PlayCalls returns how many times Play was called.
func (s *Sink) PlayCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playCalls
}

// PauseCalls returns how many times Pause was called.
func (s *Sink) PauseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pauseCalls
}

// ResumeCalls returns how many times Resume was called.
func (s *Sink) ResumeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeCalls
}

// StopCalls returns how many times Stop was called.
func (s *Sink) StopCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCalls
}
