package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaaclins/psst/internal/domain"
)

// sineBuffer generates an interleaved stereo sine at the given frequency.
func sineBuffer(frequency float64, sampleRate, frames int) []float32 {
	buf := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		s := float32(0.5 * math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate)))
		buf[2*i] = s
		buf[2*i+1] = s
	}
	return buf
}

func enabledConfig() domain.EqualizerConfig {
	return domain.EqualizerConfig{
		Enabled: true,
		Bands:   domain.DefaultEqualizerBands(),
	}
}

func TestEqualizerDisabledIsBitIdenticalPassthrough(t *testing.T) {
	config := domain.DefaultEqualizerConfig()
	require.False(t, config.Enabled)

	eq := NewEqualizer(config, 44100)

	samples := []float32{0.5, -0.5, 0.3, -0.3, 0.0, 1.0, -1.0, 0.25}
	original := append([]float32(nil), samples...)

	eq.Process(samples)

	assert.Equal(t, original, samples, "disabled equalizer must not touch samples")
}

func TestEqualizerEnabledChangesTypicalSignal(t *testing.T) {
	config := enabledConfig()
	config.Bands[5].GainDB = 6 // boost 1 kHz

	eq := NewEqualizer(config, 44100)

	samples := sineBuffer(1000, 44100, 256)
	original := append([]float32(nil), samples...)

	eq.Process(samples)

	assert.NotEqual(t, original, samples,
		"a non-zero band gain should alter the signal")
}

func TestEqualizerZeroGainIsNearTransparent(t *testing.T) {
	eq := NewEqualizer(enabledConfig(), 44100)

	samples := sineBuffer(1000, 44100, 512)
	original := append([]float32(nil), samples...)

	eq.Process(samples)

	// All-zero gains give unity filters; allow for float rounding.
	for i := range samples {
		assert.InDelta(t, original[i], samples[i], 1e-3)
	}
}

func TestEqualizerBoostRaisesBandEnergy(t *testing.T) {
	config := enabledConfig()
	config.Bands[5].GainDB = 12 // 1 kHz

	eq := NewEqualizer(config, 44100)

	samples := sineBuffer(1000, 44100, 4096)
	original := append([]float32(nil), samples...)

	eq.Process(samples)

	// Compare RMS over the tail, past the filter's settling time.
	rms := func(buf []float32) float64 {
		var sum float64
		for _, s := range buf[2048:] {
			sum += float64(s) * float64(s)
		}
		return math.Sqrt(sum / float64(len(buf)-2048))
	}
	assert.Greater(t, rms(samples), rms(original),
		"a 12 dB boost at the signal frequency should raise energy")
}

func TestEqualizerChannelsAreIndependent(t *testing.T) {
	config := enabledConfig()
	config.Bands[0].GainDB = 8

	eq := NewEqualizer(config, 44100)

	// Signal on the left channel only; the right must stay silent.
	samples := make([]float32, 512)
	for i := 0; i < len(samples); i += 2 {
		samples[i] = float32(math.Sin(float64(i) / 10))
	}

	eq.Process(samples)

	for i := 1; i < len(samples); i += 2 {
		assert.Zero(t, samples[i], "right channel should remain silent")
	}
}

func TestEqualizerUpdateConfigSameBandCountPreservesState(t *testing.T) {
	config := enabledConfig()
	config.Bands[0].GainDB = 6

	eq := NewEqualizer(config, 44100)
	eq.Process(sineBuffer(100, 44100, 256))

	stateBefore := eq.statesLeft[0]
	require.NotZero(t, stateBefore, "processing should have accumulated state")

	updated := enabledConfig()
	updated.Bands[0].GainDB = -6
	eq.UpdateConfig(updated)

	assert.Equal(t, stateBefore, eq.statesLeft[0],
		"same band count should preserve filter state")
}

func TestEqualizerUpdateConfigDifferentBandCountResetsState(t *testing.T) {
	config := enabledConfig()
	config.Bands[0].GainDB = 6

	eq := NewEqualizer(config, 44100)
	eq.Process(sineBuffer(100, 44100, 256))

	updated := domain.EqualizerConfig{
		Enabled: true,
		Bands: []domain.EqualizerBand{
			{Frequency: 100, GainDB: 3},
			{Frequency: 1000, GainDB: 3},
			{Frequency: 10000, GainDB: 3},
		},
	}
	eq.UpdateConfig(updated)

	require.Len(t, eq.statesLeft, 3)
	require.Len(t, eq.statesRight, 3)
	for _, s := range eq.statesLeft {
		assert.Zero(t, s, "band count change should reset state to silence")
	}
}

func TestEqualizerUpdateConfigAppliesNewSettings(t *testing.T) {
	eq := NewEqualizer(domain.DefaultEqualizerConfig(), 44100)

	updated := enabledConfig()
	updated.Bands[0].GainDB = 10
	eq.UpdateConfig(updated)

	assert.True(t, eq.Enabled())
	assert.Equal(t, float32(10), eq.Config().Bands[0].GainDB)
}

func TestEqualizerCoefficientsFiniteAcrossRange(t *testing.T) {
	for _, sampleRate := range []int{44100, 48000} {
		for _, frequency := range []float32{32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000} {
			for _, gain := range []float32{-12, -6, 0, 6, 12} {
				c := peakingEq(frequency, gain, sampleRate)
				for _, v := range []float32{c.b0, c.b1, c.b2, c.a1, c.a2} {
					assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0),
						"coefficient not finite at f=%v gain=%v rate=%d", frequency, gain, sampleRate)
				}
			}
		}
	}
}

func TestEqualizerPresetConfigProcesses(t *testing.T) {
	preset, ok := domain.FindPreset("Bass Boost")
	require.True(t, ok)

	config := domain.EqualizerConfig{Enabled: true, Bands: preset.Bands}
	eq := NewEqualizer(config, 44100)

	samples := sineBuffer(64, 44100, 1024)
	original := append([]float32(nil), samples...)
	eq.Process(samples)

	assert.NotEqual(t, original, samples)
}
