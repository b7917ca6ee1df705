package domain

// Credentials carry the secrets used to authenticate a session.
// Exactly one form is used per session; an access token takes precedence
// over a username/password pair when both are present.
type Credentials struct {
	// Username is the account name for password authentication.
	Username string

	// Password is the account password. Opaque to the core.
	Password string

	// AuthToken is a bearer/access token. Opaque to the core.
	AuthToken string
}

// NewPasswordCredentials creates credentials from a username and password.
func NewPasswordCredentials(username, password string) Credentials {
	return Credentials{Username: username, Password: password}
}

// NewTokenCredentials creates credentials from a bearer/access token.
func NewTokenCredentials(token string) Credentials {
	return Credentials{AuthToken: token}
}

// HasToken returns true if the credentials carry an access token.
func (c Credentials) HasToken() bool {
	return c.AuthToken != ""
}

// NormalizationLevel selects the loudness-normalization reference applied
// to a playback item.
type NormalizationLevel int

const (
	// NormalizationNone disables loudness normalization.
	NormalizationNone NormalizationLevel = iota

	// NormalizationTrack normalizes against the track's own loudness.
	NormalizationTrack

	// NormalizationAlbum normalizes against the album loudness.
	NormalizationAlbum
)

// String returns a human-readable representation of the level.
func (l NormalizationLevel) String() string {
	switch l {
	case NormalizationTrack:
		return "track"
	case NormalizationAlbum:
		return "album"
	default:
		return "none"
	}
}

// PlaybackItem is one entry of the player queue: a content id plus the
// loudness-normalization level requested for it.
type PlaybackItem struct {
	// ID identifies the track or episode to play.
	ID ItemId

	// NormLevel is the requested loudness normalization.
	NormLevel NormalizationLevel
}

// Bitrate is the preferred encoded audio bitrate in kbit/s.
type Bitrate int

const (
	// Bitrate96 selects the low-quality 96 kbit/s encoding.
	Bitrate96 Bitrate = 96

	// Bitrate160 selects the default-quality 160 kbit/s encoding.
	Bitrate160 Bitrate = 160

	// Bitrate320 selects the high-quality 320 kbit/s encoding.
	Bitrate320 Bitrate = 320
)

// PlaybackConfig carries session-wide playback tunables. It is a plain
// value object, copied into the player at construction.
type PlaybackConfig struct {
	// Bitrate is the preferred encoded bitrate for CDN audio.
	Bitrate Bitrate

	// SampleRate is the output sample rate in Hz.
	SampleRate int

	// Channels is the output channel count. The pipeline is stereo.
	Channels int

	// Equalizer is the equalizer configuration applied to decoded audio.
	Equalizer EqualizerConfig

	// NormalizationPregain is the dB gain applied on top of per-item
	// loudness normalization.
	NormalizationPregain float32
}

// DefaultPlaybackConfig returns the default playback tunables.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		Bitrate:    Bitrate160,
		SampleRate: 44100,
		Channels:   2,
		Equalizer:  DefaultEqualizerConfig(),
	}
}

// AudioFormat identifies the encoding of one CDN audio file.
type AudioFormat int

const (
	// FormatUnknown is an unrecognized encoding.
	FormatUnknown AudioFormat = iota

	// FormatOggVorbis96 is Ogg Vorbis at 96 kbit/s.
	FormatOggVorbis96

	// FormatOggVorbis160 is Ogg Vorbis at 160 kbit/s.
	FormatOggVorbis160

	// FormatOggVorbis320 is Ogg Vorbis at 320 kbit/s.
	FormatOggVorbis320
)

// Bitrate returns the nominal bitrate of the format in kbit/s.
func (f AudioFormat) Bitrate() Bitrate {
	switch f {
	case FormatOggVorbis96:
		return Bitrate96
	case FormatOggVorbis160:
		return Bitrate160
	case FormatOggVorbis320:
		return Bitrate320
	default:
		return 0
	}
}

// AudioFileRef points at one encoded rendition of a track or episode.
type AudioFileRef struct {
	// ID is the CDN content hash of the encoded file.
	ID FileId

	// Format is the encoding of the file.
	Format AudioFormat
}

// TrackRecord is the cached metadata record for a track.
type TrackRecord struct {
	// Name is the track title.
	Name string

	// Album is the album name.
	Album string

	// Artists are the performing artist names, in credit order.
	Artists []string

	// Number is the track number on the album.
	Number int32

	// DiscNumber is the disc number for multi-disc albums.
	DiscNumber int32

	// DurationMs is the track length in milliseconds.
	DurationMs int32

	// Popularity is the 0-100 popularity score.
	Popularity int32

	// Explicit marks explicit lyrics.
	Explicit bool

	// Files are the encoded renditions available on the CDN.
	Files []AudioFileRef
}

// FileForBitrate picks the rendition matching the preferred bitrate.
// Returns no value when the record lists no matching file.
func (t *TrackRecord) FileForBitrate(bitrate Bitrate) (AudioFileRef, bool) {
	for _, f := range t.Files {
		if f.Format.Bitrate() == bitrate {
			return f, true
		}
	}
	return AudioFileRef{}, false
}

// EpisodeRecord is the cached metadata record for a podcast episode.
type EpisodeRecord struct {
	// Name is the episode title.
	Name string

	// Show is the podcast show name.
	Show string

	// DurationMs is the episode length in milliseconds.
	DurationMs int32

	// Explicit marks explicit content.
	Explicit bool

	// Files are the encoded renditions available on the CDN.
	Files []AudioFileRef
}

// PlayerState is the coarse state of the playback engine.
type PlayerState int

const (
	// StateIdle means no queue is loaded.
	StateIdle PlayerState = iota

	// StateLoading means the current item is being resolved and fetched.
	StateLoading

	// StatePlaying means audio is flowing to the output sink.
	StatePlaying

	// StatePaused means playback is suspended and can be resumed.
	StatePaused
)

// String returns a human-readable representation of the player state.
func (s PlayerState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}
