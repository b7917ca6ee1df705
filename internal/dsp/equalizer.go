// Package dsp holds the sample processing applied between the decoder and
// the output sink: the multi-band peaking equalizer and loudness
// normalization. Everything runs in single-precision float on interleaved
// stereo buffers and is owned by exactly one audio path.
package dsp

import (
	"math"

	"github.com/isaaclins/psst/internal/domain"
)

// biquadCoefficients are the normalized peaking-EQ filter coefficients for
// one band.
type biquadCoefficients struct {
	b0, b1, b2 float32
	a1, a2     float32
}

// peakingEq derives coefficients from the analog prototype with a fixed
// Q of 1.0, normalized so the leading feedback coefficient is unity.
func peakingEq(frequency, gainDB float32, sampleRate int) biquadCoefficients {
	a := float32(math.Pow(10, float64(gainDB)/40))
	omega := 2 * math.Pi * float64(frequency) / float64(sampleRate)
	cosOmega := float32(math.Cos(omega))
	sinOmega := float32(math.Sin(omega))

	const q = 1.0
	alpha := sinOmega / (2 * q)

	b0 := 1 + alpha*a
	b1 := -2 * cosOmega
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosOmega
	a2 := 1 - alpha/a

	return biquadCoefficients{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// biquadState is the filter memory for one band on one channel.
type biquadState struct {
	x1, x2 float32
	y1, y2 float32
}

func (s *biquadState) process(input float32, c *biquadCoefficients) float32 {
	output := c.b0*input + c.b1*s.x1 + c.b2*s.x2 - c.a1*s.y1 - c.a2*s.y2

	s.x2 = s.x1
	s.x1 = input
	s.y2 = s.y1
	s.y1 = output

	return output
}

// Equalizer applies a cascade of per-band peaking filters to interleaved
// stereo samples, left and right channels fully independent.
//
// Not safe for concurrent use; the audio path is its sole owner.
type Equalizer struct {
	config       domain.EqualizerConfig
	sampleRate   int
	coefficients []biquadCoefficients
	statesLeft   []biquadState
	statesRight  []biquadState
}

// NewEqualizer creates an equalizer for the given configuration and sample
// rate.
func NewEqualizer(config domain.EqualizerConfig, sampleRate int) *Equalizer {
	return &Equalizer{
		config:       config,
		sampleRate:   sampleRate,
		coefficients: calculateCoefficients(config.Bands, sampleRate),
		statesLeft:   make([]biquadState, len(config.Bands)),
		statesRight:  make([]biquadState, len(config.Bands)),
	}
}

func calculateCoefficients(bands []domain.EqualizerBand, sampleRate int) []biquadCoefficients {
	coefficients := make([]biquadCoefficients, len(bands))
	for i, band := range bands {
		coefficients[i] = peakingEq(band.Frequency, band.GainDB, sampleRate)
	}
	return coefficients
}

// UpdateConfig recomputes coefficients immediately. Filter state resets to
// silence only when the band count changes; gain or frequency changes with
// the same band count keep the state, avoiding audible clicks.
func (e *Equalizer) UpdateConfig(config domain.EqualizerConfig) {
	e.coefficients = calculateCoefficients(config.Bands, e.sampleRate)

	if len(config.Bands) != len(e.statesLeft) {
		e.statesLeft = make([]biquadState, len(config.Bands))
		e.statesRight = make([]biquadState, len(config.Bands))
	}

	e.config = config
}

// Process filters interleaved stereo samples in place, chaining every band
// in series. When disabled it leaves the buffer untouched.
func (e *Equalizer) Process(samples []float32) {
	if !e.config.Enabled {
		return
	}

	for i := 0; i+1 < len(samples); i += 2 {
		left := samples[i]
		right := samples[i+1]

		for b := range e.coefficients {
			left = e.statesLeft[b].process(left, &e.coefficients[b])
			right = e.statesRight[b].process(right, &e.coefficients[b])
		}

		samples[i] = left
		samples[i+1] = right
	}
}

// Config returns the current configuration.
func (e *Equalizer) Config() domain.EqualizerConfig {
	return e.config
}

// Enabled reports whether processing is active.
func (e *Equalizer) Enabled() bool {
	return e.config.Enabled
}

// SetEnabled toggles processing without touching coefficients or state.
func (e *Equalizer) SetEnabled(enabled bool) {
	e.config.Enabled = enabled
}
