package testutil

import (
	"context"
	"sync"

	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/ports"
)

// FakeSession is an in-memory ports.Session backed by fixture maps, with
// per-call error injection for failure-path tests.
type FakeSession struct {
	mu sync.Mutex

	Tracks   map[domain.ItemId]*domain.TrackRecord
	Episodes map[domain.ItemId]*domain.EpisodeRecord
	Keys     map[domain.FileId][]byte
	URLs     map[domain.FileId]string

	// Fail* make the corresponding call return the given error.
	FailGetTrack   error
	FailGetEpisode error
	FailAudioKey   error
	FailResolveURL error

	// Call counters, useful for asserting cache-first behavior.
	GetTrackCalls   int
	GetEpisodeCalls int
	AudioKeyCalls   int
	ResolveCalls    int

	closed bool
}

// NewFakeSession creates an empty fake session.
func NewFakeSession() *FakeSession {
	return &FakeSession{
		Tracks:   make(map[domain.ItemId]*domain.TrackRecord),
		Episodes: make(map[domain.ItemId]*domain.EpisodeRecord),
		Keys:     make(map[domain.FileId][]byte),
		URLs:     make(map[domain.FileId]string),
	}
}

// GetTrack returns the fixture record or domain.ErrNotFound.
func (s *FakeSession) GetTrack(ctx context.Context, id domain.ItemId) (*domain.TrackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetTrackCalls++
	if s.FailGetTrack != nil {
		return nil, s.FailGetTrack
	}
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	record, ok := s.Tracks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

// GetEpisode returns the fixture record or domain.ErrNotFound.
func (s *FakeSession) GetEpisode(ctx context.Context, id domain.ItemId) (*domain.EpisodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetEpisodeCalls++
	if s.FailGetEpisode != nil {
		return nil, s.FailGetEpisode
	}
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	record, ok := s.Episodes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

// AudioKey returns the fixture key or a content error wrapping
// domain.ErrMissingAudioKey.
func (s *FakeSession) AudioKey(ctx context.Context, item domain.ItemId, file domain.FileId) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AudioKeyCalls++
	if s.FailAudioKey != nil {
		return nil, s.FailAudioKey
	}
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	key, ok := s.Keys[file]
	if !ok {
		return nil, domain.NewContentError(item, domain.ErrMissingAudioKey)
	}
	return key, nil
}

// ResolveAudioURL returns the fixture location or domain.ErrNotFound.
func (s *FakeSession) ResolveAudioURL(ctx context.Context, file domain.FileId) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResolveCalls++
	if s.FailResolveURL != nil {
		return "", s.FailResolveURL
	}
	if err := s.checkOpen(ctx); err != nil {
		return "", err
	}
	url, ok := s.URLs[file]
	if !ok {
		return "", domain.ErrNotFound
	}
	return url, nil
}

// Connected reports whether Close has been called.
func (s *FakeSession) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close marks the session closed.
func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FakeSession) checkOpen(ctx context.Context) error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	return ctx.Err()
}

// Verify that FakeSession implements the ports.Session interface
var _ ports.Session = (*FakeSession)(nil)
