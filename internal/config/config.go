// Package config loads application configuration from a YAML file, layered
// over built-in defaults. The zero-config path works: every field has a
// usable default and a missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/logger"
)

// Audio backend names selectable in configuration.
const (
	BackendBeep = "beep"
	BackendMock = "mock"
)

// Config is the full application configuration.
type Config struct {
	// CacheDir is the root of the content cache.
	CacheDir string `yaml:"cache_dir"`

	// AccessPoint is the host:port of the access point to connect to.
	AccessPoint string `yaml:"access_point"`

	// Proxy is an optional HTTP proxy URL for the access point connection.
	Proxy string `yaml:"proxy"`

	// DeviceName is the device name announced during authentication.
	DeviceName string `yaml:"device_name"`

	// Bitrate is the preferred encoded bitrate in kbit/s (96, 160, 320).
	Bitrate int `yaml:"bitrate"`

	// AudioBackend selects the output implementation ("beep" or "mock").
	AudioBackend string `yaml:"audio_backend"`

	// SampleRate is the fallback output sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	Equalizer     Equalizer     `yaml:"equalizer"`
	Normalization Normalization `yaml:"normalization"`
	Log           Log           `yaml:"log"`
}

// Equalizer configures the playback equalizer. A preset name wins over an
// explicit band list.
type Equalizer struct {
	Enabled bool                   `yaml:"enabled"`
	Preset  string                 `yaml:"preset"`
	Bands   []domain.EqualizerBand `yaml:"bands"`
}

// Normalization configures loudness normalization.
type Normalization struct {
	// Level is "none", "track" or "album".
	Level string `yaml:"level"`

	// PregainDB is applied on top of the per-item normalization gain.
	PregainDB float32 `yaml:"pregain_db"`
}

// Log configures the logger.
type Log struct {
	// Level is "debug", "info", "warn" or "error". Empty defers to the
	// PSST_LOG_LEVEL environment variable.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		cacheRoot = "."
	}
	return Config{
		CacheDir:     filepath.Join(cacheRoot, "psst"),
		AccessPoint:  "ap.spotify.com:4070",
		DeviceName:   "psst",
		Bitrate:      int(domain.Bitrate160),
		AudioBackend: BackendBeep,
		SampleRate:   44100,
		Normalization: Normalization{
			Level: "track",
		},
		Log: Log{
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path or a
// missing file yields the defaults; a present but malformed file is an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values that cannot be checked by the YAML decoder.
func (c Config) Validate() error {
	switch domain.Bitrate(c.Bitrate) {
	case domain.Bitrate96, domain.Bitrate160, domain.Bitrate320:
	default:
		return fmt.Errorf("invalid bitrate %d, want 96, 160 or 320", c.Bitrate)
	}

	switch c.AudioBackend {
	case BackendBeep, BackendMock:
	default:
		return fmt.Errorf("unknown audio backend %q", c.AudioBackend)
	}

	switch strings.ToLower(c.Normalization.Level) {
	case "", "none", "track", "album":
	default:
		return fmt.Errorf("unknown normalization level %q", c.Normalization.Level)
	}

	if c.Equalizer.Preset != "" {
		if _, ok := domain.FindPreset(c.Equalizer.Preset); !ok {
			return fmt.Errorf("unknown equalizer preset %q", c.Equalizer.Preset)
		}
	}
	return nil
}

// NormalizationLevel maps the configured level name to its domain value.
func (c Config) NormalizationLevel() domain.NormalizationLevel {
	switch strings.ToLower(c.Normalization.Level) {
	case "track":
		return domain.NormalizationTrack
	case "album":
		return domain.NormalizationAlbum
	default:
		return domain.NormalizationNone
	}
}

// EqualizerConfig resolves the configured preset or band list.
func (c Config) EqualizerConfig() domain.EqualizerConfig {
	bands := c.Equalizer.Bands
	if c.Equalizer.Preset != "" {
		if preset, ok := domain.FindPreset(c.Equalizer.Preset); ok {
			bands = preset.Bands
		}
	}
	if len(bands) == 0 {
		bands = domain.DefaultEqualizerBands()
	}
	return domain.EqualizerConfig{Enabled: c.Equalizer.Enabled, Bands: bands}
}

// PlaybackConfig builds the player's tunables from the configuration.
func (c Config) PlaybackConfig() domain.PlaybackConfig {
	return domain.PlaybackConfig{
		Bitrate:              domain.Bitrate(c.Bitrate),
		SampleRate:           c.SampleRate,
		Channels:             2,
		Equalizer:            c.EqualizerConfig(),
		NormalizationPregain: c.Normalization.PregainDB,
	}
}

// LoggerConfig builds the logger configuration. An explicit level in the
// file wins over the PSST_LOG_LEVEL environment variable.
func (c Config) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		cfg.Level = slog.LevelDebug
	case "info":
		cfg.Level = slog.LevelInfo
	case "warn", "warning":
		cfg.Level = slog.LevelWarn
	case "error":
		cfg.Level = slog.LevelError
	}
	if c.Log.Format != "" {
		cfg.Format = c.Log.Format
	}
	return cfg
}
