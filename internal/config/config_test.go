package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaaclins/psst/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "psst.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, int(domain.Bitrate160), cfg.Bitrate)
	assert.Equal(t, BackendBeep, cfg.AudioBackend)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
cache_dir: /tmp/psst-test
bitrate: 320
audio_backend: mock
equalizer:
  enabled: true
  preset: Bass Boost
normalization:
  level: album
  pregain_db: 3
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/psst-test", cfg.CacheDir)
	assert.Equal(t, 320, cfg.Bitrate)
	assert.Equal(t, BackendMock, cfg.AudioBackend)
	assert.Equal(t, "ap.spotify.com:4070", cfg.AccessPoint, "unset fields keep defaults")

	assert.Equal(t, domain.NormalizationAlbum, cfg.NormalizationLevel())
	assert.Equal(t, slog.LevelDebug, cfg.LoggerConfig().Level)
	assert.Equal(t, "json", cfg.LoggerConfig().Format)
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := writeConfig(t, "cache_dir: [not a string")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bitrate", func(c *Config) { c.Bitrate = 128 }},
		{"backend", func(c *Config) { c.AudioBackend = "pulse" }},
		{"normalization", func(c *Config) { c.Normalization.Level = "loud" }},
		{"preset", func(c *Config) { c.Equalizer.Preset = "Dubstep" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEqualizerConfigPresetWinsOverBands(t *testing.T) {
	cfg := Default()
	cfg.Equalizer = Equalizer{
		Enabled: true,
		Preset:  "Rock",
		Bands:   []domain.EqualizerBand{{Frequency: 100, GainDB: 1}},
	}

	preset, ok := domain.FindPreset("Rock")
	require.True(t, ok)
	resolved := cfg.EqualizerConfig()
	assert.True(t, resolved.Enabled)
	assert.Equal(t, preset.Bands, resolved.Bands)
}

func TestEqualizerConfigDefaultsToFlatBands(t *testing.T) {
	resolved := Default().EqualizerConfig()
	assert.False(t, resolved.Enabled)
	assert.Equal(t, domain.DefaultEqualizerBands(), resolved.Bands)
}

func TestPlaybackConfig(t *testing.T) {
	cfg := Default()
	cfg.Bitrate = 96
	cfg.Normalization.PregainDB = 2.5

	playback := cfg.PlaybackConfig()
	assert.Equal(t, domain.Bitrate96, playback.Bitrate)
	assert.Equal(t, 2, playback.Channels)
	assert.Equal(t, float32(2.5), playback.NormalizationPregain)
}
