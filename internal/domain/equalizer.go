package domain

import "strings"

// EqualizerBand is a single equalizer band: a center frequency and the gain
// applied around it.
type EqualizerBand struct {
	// Frequency is the band center frequency in Hz.
	Frequency float32 `yaml:"frequency"`

	// GainDB is the band gain in dB, typically within -12.0 to +12.0.
	GainDB float32 `yaml:"gain_db"`
}

// EqualizerConfig is the configuration of the equalizer: an enabled flag and
// an ordered list of bands.
type EqualizerConfig struct {
	// Enabled toggles the whole equalizer. When false, processing is a
	// bit-identical passthrough.
	Enabled bool `yaml:"enabled"`

	// Bands are the frequency bands, applied in series.
	Bands []EqualizerBand `yaml:"bands"`
}

// DefaultEqualizerBands returns the standard 10-band layout at ISO center
// frequencies, all at 0 dB.
func DefaultEqualizerBands() []EqualizerBand {
	return []EqualizerBand{
		{Frequency: 32, GainDB: 0},
		{Frequency: 64, GainDB: 0},
		{Frequency: 125, GainDB: 0},
		{Frequency: 250, GainDB: 0},
		{Frequency: 500, GainDB: 0},
		{Frequency: 1000, GainDB: 0},
		{Frequency: 2000, GainDB: 0},
		{Frequency: 4000, GainDB: 0},
		{Frequency: 8000, GainDB: 0},
		{Frequency: 16000, GainDB: 0},
	}
}

// DefaultEqualizerConfig returns a disabled equalizer with the default bands.
func DefaultEqualizerConfig() EqualizerConfig {
	return EqualizerConfig{Enabled: false, Bands: DefaultEqualizerBands()}
}

// EqualizerPreset is a named, fixed band list.
type EqualizerPreset struct {
	// Name is the preset display name.
	Name string

	// Bands are the preset's gain settings over the default band layout.
	Bands []EqualizerBand
}

// BuiltInPresets returns the eight built-in equalizer presets.
func BuiltInPresets() []EqualizerPreset {
	return []EqualizerPreset{
		{Name: "Flat", Bands: DefaultEqualizerBands()},
		{Name: "Bass Boost", Bands: presetBands(8, 6, 4, 2, 0, 0, 0, 0, 0, 0)},
		{Name: "Treble Boost", Bands: presetBands(0, 0, 0, 0, 0, 2, 4, 6, 8, 8)},
		{Name: "Vocal", Bands: presetBands(-2, -2, -1, 2, 4, 4, 4, 2, 0, -2)},
		{Name: "Rock", Bands: presetBands(5, 4, 2, -1, -2, -1, 2, 4, 5, 5)},
		{Name: "Classical", Bands: presetBands(0, 0, 0, 0, 0, 0, -2, -2, -2, -3)},
		{Name: "Jazz", Bands: presetBands(3, 2, 1, 2, -1, -1, 0, 2, 3, 3)},
		{Name: "Pop", Bands: presetBands(-1, 0, 2, 4, 4, 3, 0, -1, -1, -2)},
	}
}

// FindPreset looks up a built-in preset by name, case-insensitively.
func FindPreset(name string) (EqualizerPreset, bool) {
	for _, p := range BuiltInPresets() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return EqualizerPreset{}, false
}

// presetBands builds a band list from gains over the default frequencies.
func presetBands(gains ...float32) []EqualizerBand {
	bands := DefaultEqualizerBands()
	for i := range bands {
		bands[i].GainDB = gains[i]
	}
	return bands
}
