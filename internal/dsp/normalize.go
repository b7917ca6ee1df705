package dsp

import (
	"math"

	"github.com/isaaclins/psst/internal/domain"
)

// Normalizer applies a flat loudness-normalization gain to interleaved
// samples. The gain is derived from the item's requested level and the
// session-wide pregain, both in dB.
type Normalizer struct {
	gain float32
}

// Reference loudness adjustments in dB for each normalization level. Track
// references the item's own loudness, album the surrounding album's; the
// values are fixed approximations in the absence of per-item loudness
// metadata.
const (
	trackReferenceDB = -3.0
	albumReferenceDB = -2.0
)

// NewNormalizer creates a normalizer for one playback item.
func NewNormalizer(level domain.NormalizationLevel, pregainDB float32) *Normalizer {
	var db float32
	switch level {
	case domain.NormalizationTrack:
		db = trackReferenceDB + pregainDB
	case domain.NormalizationAlbum:
		db = albumReferenceDB + pregainDB
	default:
		return &Normalizer{gain: 1}
	}
	return &Normalizer{gain: float32(math.Pow(10, float64(db)/20))}
}

// Gain returns the linear gain factor.
func (n *Normalizer) Gain() float32 {
	return n.gain
}

// Process scales samples in place. A unity gain is a no-op.
func (n *Normalizer) Process(samples []float32) {
	if n.gain == 1 {
		return
	}
	for i := range samples {
		samples[i] *= n.gain
	}
}
