package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/isaaclins/psst/internal/domain"
)

func TestNormalizerNoneIsPassthrough(t *testing.T) {
	n := NewNormalizer(domain.NormalizationNone, 0)

	samples := []float32{0.5, -0.5, 0.25}
	original := append([]float32(nil), samples...)

	n.Process(samples)

	assert.Equal(t, original, samples)
	assert.Equal(t, float32(1), n.Gain())
}

func TestNormalizerTrackAttenuates(t *testing.T) {
	n := NewNormalizer(domain.NormalizationTrack, 0)

	assert.Less(t, n.Gain(), float32(1), "track normalization should attenuate")
	assert.Greater(t, n.Gain(), float32(0))

	samples := []float32{1.0, -1.0}
	n.Process(samples)
	assert.InDelta(t, float64(n.Gain()), float64(samples[0]), 1e-6)
	assert.InDelta(t, float64(-n.Gain()), float64(samples[1]), 1e-6)
}

func TestNormalizerAlbumDiffersFromTrack(t *testing.T) {
	track := NewNormalizer(domain.NormalizationTrack, 0)
	album := NewNormalizer(domain.NormalizationAlbum, 0)

	assert.NotEqual(t, track.Gain(), album.Gain())
}

func TestNormalizerPregainShiftsLevel(t *testing.T) {
	base := NewNormalizer(domain.NormalizationTrack, 0)
	boosted := NewNormalizer(domain.NormalizationTrack, 3)

	assert.Greater(t, boosted.Gain(), base.Gain(),
		"positive pregain should raise the level")
}

func TestNormalizerPregainIgnoredWhenDisabled(t *testing.T) {
	n := NewNormalizer(domain.NormalizationNone, 6)

	assert.Equal(t, float32(1), n.Gain(),
		"pregain applies only when normalization is on")
}
