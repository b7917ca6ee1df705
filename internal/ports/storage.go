// Package ports define the content cache interface.
package ports

import (
	"io"

	"github.com/isaaclins/psst/internal/domain"
)

// Cache is a content-addressable local store for metadata records, audio
// files and decryption keys, keyed by content identity.
//
// Behavior contract:
//   - Get methods return domain.ErrNotFound both when an entry is absent
//     and when its stored bytes fail to deserialize. Corruption is
//     absorbed into a miss, never surfaced.
//   - Save methods overwrite any prior entry for the key (last-writer-wins,
//     no merge).
//
// Thread-safety: Implementations must be thread-safe; concurrent readers
// never observe partial writes.
type Cache interface {
	// SaveTrack persists a track metadata record under its id.
	SaveTrack(id domain.ItemId, record *domain.TrackRecord) error

	// GetTrack retrieves a track metadata record.
	// Returns domain.ErrNotFound when absent or unreadable.
	GetTrack(id domain.ItemId) (*domain.TrackRecord, error)

	// SaveEpisode persists an episode metadata record under its id.
	SaveEpisode(id domain.ItemId, record *domain.EpisodeRecord) error

	// GetEpisode retrieves an episode metadata record.
	// Returns domain.ErrNotFound when absent or unreadable.
	GetEpisode(id domain.ItemId) (*domain.EpisodeRecord, error)

	// SaveAudioKey persists the decryption key for an encoded file.
	SaveAudioKey(file domain.FileId, key []byte) error

	// GetAudioKey retrieves the decryption key for an encoded file.
	// Returns domain.ErrNotFound when absent.
	GetAudioKey(file domain.FileId) ([]byte, error)

	// SaveAudio streams a complete encoded audio file into the cache.
	SaveAudio(file domain.FileId, r io.Reader) error

	// OpenAudio opens a cached encoded audio file for seekable reading.
	// Returns domain.ErrNotFound when absent.
	OpenAudio(file domain.FileId) (ReadSeekCloser, error)

	// Clear deletes all cached content and recreates the empty directory
	// skeleton, leaving the cache structurally identical to a fresh one.
	Clear() error
}

// ReadSeekCloser combines seekable reading with closing.
type ReadSeekCloser interface {
	io.Reader
	io.Seeker
	io.Closer
}
