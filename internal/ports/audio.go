// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of
// concrete audio backends, network transports and storage layouts.
package ports

import (
	"time"
)

// SampleSource is a pull-based source of interleaved stereo float32 samples.
// The output sink's real-time callback pulls from it; implementations must
// therefore never block on network or disk I/O. When data is not ready the
// source returns fewer samples (underrun manifests as silence, not a crash).
type SampleSource interface {
	// ReadSamples fills buf with interleaved stereo samples and returns
	// the number of samples written. It returns io.EOF at the natural
	// end of the stream.
	ReadSamples(buf []float32) (int, error)

	// Position returns the current playback position within the stream.
	Position() time.Duration

	// Duration returns the total stream duration, or zero if unknown.
	Duration() time.Duration
}

// AudioSink is one open stream on an audio output device.
//
// Thread-safety: the player control loop is the only caller of the control
// methods; the sink pulls samples from its source on its own real-time
// thread.
type AudioSink interface {
	// SampleRate returns the sample rate the sink was opened with.
	SampleRate() int

	// Channels returns the channel count the sink was opened with.
	Channels() int

	// Play starts pulling samples from the source and rendering them.
	// A second Play replaces the active source.
	Play(source SampleSource) error

	// Pause suspends rendering, keeping the active source.
	Pause() error

	// Resume continues rendering after a Pause.
	Resume() error

	// Stop ceases rendering and releases the active source.
	Stop() error

	// SetVolume sets the output volume from 0.0 (silent) to 1.0 (full).
	SetVolume(volume float64) error

	// Close releases the device. The sink is unusable afterwards.
	Close() error
}

// AudioOutput is a factory for audio sinks, one implementation per native
// audio backend. The backend is selected once at startup by configuration;
// all backends satisfy the same interface.
type AudioOutput interface {
	// Open opens the output device for the given stream parameters.
	Open(sampleRate, channels int) (AudioSink, error)
}
