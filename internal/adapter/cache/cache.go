// Package cache implements the on-disk content-addressable store.
// Entries are keyed by content identity: metadata records by the id's
// 22-character base62 form, audio files and decryption keys by the FileId's
// 40-character base16 form. The directory layout is fixed and preserved
// bit-for-bit for compatibility.
package cache

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/ports"
)

// Fixed top-level subdirectories, one per content class.
const (
	trackDir   = "track"
	episodeDir = "episode"
	audioDir   = "audio"
	keyDir     = "key"
)

// Cache is the filesystem-backed content store.
//
// Thread-safety: guarded by an RWMutex; writes go through a temp file and
// an atomic rename, so concurrent readers never observe partial writes and
// concurrent saves of the same key are last-writer-wins.
type Cache struct {
	root string
	mu   sync.RWMutex
}

// New opens (and if necessary creates) a cache rooted at the given path.
// The root and all four content subdirectories are created when absent;
// calling New on an existing cache is idempotent.
func New(root string) (*Cache, error) {
	c := &Cache{root: root}
	if err := c.ensureLayout(); err != nil {
		return nil, err
	}
	return c, nil
}

// ensureLayout creates the root and the content subdirectories.
func (c *Cache) ensureLayout() error {
	for _, dir := range []string{"", trackDir, episodeDir, audioDir, keyDir} {
		if err := os.MkdirAll(filepath.Join(c.root, dir), 0o755); err != nil {
			return domain.NewTransportError("cache_mkdir", c.root, err)
		}
	}
	return nil
}

// SaveTrack persists a track metadata record, overwriting any prior entry.
func (c *Cache) SaveTrack(id domain.ItemId, record *domain.TrackRecord) error {
	return c.writeEntry(c.trackPath(id), encodeTrackRecord(record))
}

// GetTrack retrieves a track metadata record.
//
// Absent, empty, truncated and otherwise corrupted entries all come back as
// domain.ErrNotFound; corruption is treated as a miss, never as a failure.
func (c *Cache) GetTrack(id domain.ItemId) (*domain.TrackRecord, error) {
	data, err := c.readEntry(c.trackPath(id))
	if err != nil {
		return nil, err
	}
	record, err := decodeTrackRecord(data)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

// SaveEpisode persists an episode metadata record, overwriting any prior
// entry.
func (c *Cache) SaveEpisode(id domain.ItemId, record *domain.EpisodeRecord) error {
	return c.writeEntry(c.episodePath(id), encodeEpisodeRecord(record))
}

// GetEpisode retrieves an episode metadata record. Corruption is a miss.
func (c *Cache) GetEpisode(id domain.ItemId) (*domain.EpisodeRecord, error) {
	data, err := c.readEntry(c.episodePath(id))
	if err != nil {
		return nil, err
	}
	record, err := decodeEpisodeRecord(data)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

// SaveAudioKey persists the decryption key for an encoded file.
func (c *Cache) SaveAudioKey(file domain.FileId, key []byte) error {
	return c.writeEntry(c.keyPath(file), key)
}

// GetAudioKey retrieves the decryption key for an encoded file.
func (c *Cache) GetAudioKey(file domain.FileId) ([]byte, error) {
	return c.readEntry(c.keyPath(file))
}

// SaveAudio streams a complete encoded audio file into the cache.
func (c *Cache) SaveAudio(file domain.FileId, r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.audioPath(file)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return domain.NewTransportError("cache_write", path, err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return domain.NewTransportError("cache_write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return domain.NewTransportError("cache_write", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return domain.NewTransportError("cache_write", path, err)
	}
	return nil
}

// OpenAudio opens a cached encoded audio file for seekable reading.
func (c *Cache) OpenAudio(file domain.FileId) (ports.ReadSeekCloser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.audioPath(file))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewTransportError("cache_read", c.audioPath(file), err)
	}
	return f, nil
}

// Clear deletes all cached content and recreates the empty directory
// skeleton. A cleared cache is structurally identical to a fresh one.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, dir := range []string{trackDir, episodeDir, audioDir, keyDir} {
		if err := os.RemoveAll(filepath.Join(c.root, dir)); err != nil {
			return domain.NewTransportError("cache_clear", c.root, err)
		}
	}
	return c.ensureLayout()
}

// writeEntry atomically replaces the entry at path with data.
func (c *Cache) writeEntry(path string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return domain.NewTransportError("cache_write", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return domain.NewTransportError("cache_write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return domain.NewTransportError("cache_write", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return domain.NewTransportError("cache_write", path, err)
	}
	return nil
}

// readEntry reads the entry at path; a missing file is domain.ErrNotFound.
func (c *Cache) readEntry(path string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewTransportError("cache_read", path, err)
	}
	return data, nil
}

// Storage paths are pure functions of (content class, id), so distinct ids
// can never collide.

func (c *Cache) trackPath(id domain.ItemId) string {
	return filepath.Join(c.root, trackDir, id.ToBase62())
}

func (c *Cache) episodePath(id domain.ItemId) string {
	return filepath.Join(c.root, episodeDir, id.ToBase62())
}

func (c *Cache) audioPath(file domain.FileId) string {
	return filepath.Join(c.root, audioDir, file.ToBase16())
}

func (c *Cache) keyPath(file domain.FileId) string {
	return filepath.Join(c.root, keyDir, file.ToBase16())
}

// Verify that Cache implements the ports.Cache interface
var _ ports.Cache = (*Cache)(nil)
