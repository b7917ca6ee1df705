// Package ports define the session and CDN interfaces.
package ports

import (
	"context"

	"github.com/isaaclins/psst/internal/domain"
)

// Session is the authenticated, encrypted channel to the access point, as
// seen by its consumers. The concrete implementation owns the handshake,
// the stream ciphers and the request multiplexing; consumers only issue
// metadata and key lookups.
//
// Thread-safety: Implementations must be safe for concurrent use; the
// player control loop and background loaders share one handle.
type Session interface {
	// GetTrack fetches the metadata record for a track.
	GetTrack(ctx context.Context, id domain.ItemId) (*domain.TrackRecord, error)

	// GetEpisode fetches the metadata record for a podcast episode.
	GetEpisode(ctx context.Context, id domain.ItemId) (*domain.EpisodeRecord, error)

	// AudioKey obtains the per-file decryption key for an encoded file.
	// Returns domain.ErrMissingAudioKey when the access point has none.
	AudioKey(ctx context.Context, item domain.ItemId, file domain.FileId) ([]byte, error)

	// ResolveAudioURL obtains a short-lived CDN location for a file.
	ResolveAudioURL(ctx context.Context, file domain.FileId) (string, error)

	// Connected reports whether the channel is up and authenticated.
	Connected() bool

	// Close tears down the channel.
	Close() error
}

// AudioSource is a decrypted, seekable view of one encoded audio file.
type AudioSource interface {
	ReadSeekCloser

	// Size returns the total encoded file size in bytes.
	Size() int64
}

// CdnClient resolves and fetches encrypted audio content, exposing it
// decrypted and seekable.
type CdnClient interface {
	// OpenAudioFile obtains the location and decryption key for a file
	// through the session, then returns a seekable decrypted stream.
	// Network failures are retryable transport errors; a missing or
	// invalid key is a non-retryable content error.
	OpenAudioFile(ctx context.Context, item domain.ItemId, file domain.FileId) (AudioSource, error)
}
