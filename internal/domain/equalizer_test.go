package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEqualizerConfig(t *testing.T) {
	cfg := DefaultEqualizerConfig()
	assert.False(t, cfg.Enabled)
	assert.Len(t, cfg.Bands, 10)
	for _, band := range cfg.Bands {
		assert.Zero(t, band.GainDB)
	}
}

func TestBuiltInPresets(t *testing.T) {
	presets := BuiltInPresets()
	require.Len(t, presets, 8)

	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
		assert.Len(t, p.Bands, 10, "preset %s", p.Name)
	}
	assert.Equal(t, []string{
		"Flat", "Bass Boost", "Treble Boost", "Vocal",
		"Rock", "Classical", "Jazz", "Pop",
	}, names)
}

func TestFindPreset_CaseInsensitive(t *testing.T) {
	preset, ok := FindPreset("bass boost")
	require.True(t, ok)
	assert.Equal(t, "Bass Boost", preset.Name)
	assert.Equal(t, float32(8), preset.Bands[0].GainDB)
}

func TestFindPreset_Unknown(t *testing.T) {
	_, ok := FindPreset("does-not-exist")
	assert.False(t, ok)
}
