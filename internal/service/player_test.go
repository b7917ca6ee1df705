package service

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaaclins/psst/internal/adapter/audio/mock"
	"github.com/isaaclins/psst/internal/adapter/cache"
	"github.com/isaaclins/psst/internal/adapter/eventbus"
	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/logger"
	"github.com/isaaclins/psst/internal/ports"
	"github.com/isaaclins/psst/internal/testutil"
)

const eventTimeout = 5 * time.Second

// eventRecorder subscribes to every event and lets tests block until a
// given type arrives.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
	ch     chan domain.Event
}

func newEventRecorder(bus ports.EventBus) *eventRecorder {
	r := &eventRecorder{ch: make(chan domain.Event, 256)}
	bus.SubscribeAll(func(event domain.Event) {
		r.mu.Lock()
		r.events = append(r.events, event)
		r.mu.Unlock()
		select {
		case r.ch <- event:
		default:
		}
	})
	return r
}

// wait consumes events until one of the given type arrives.
func (r *eventRecorder) wait(t *testing.T, eventType domain.EventType) domain.Event {
	t.Helper()
	deadline := time.After(eventTimeout)
	for {
		select {
		case event := <-r.ch:
			if event.Type() == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
			return nil
		}
	}
}

func (r *eventRecorder) count(eventType domain.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event.Type() == eventType {
			n++
		}
	}
	return n
}

// stubCdn fails every open with a fixed error.
type stubCdn struct {
	err error
}

func (c *stubCdn) OpenAudioFile(ctx context.Context, item domain.ItemId, file domain.FileId) (ports.AudioSource, error) {
	return nil, c.err
}

// blockingSession parks GetTrack until its context is cancelled, signalling
// once the call is in flight.
type blockingSession struct {
	*testutil.FakeSession
	started chan struct{}
	once    sync.Once
}

func newBlockingSession() *blockingSession {
	return &blockingSession{
		FakeSession: testutil.NewFakeSession(),
		started:     make(chan struct{}),
	}
}

func (s *blockingSession) GetTrack(ctx context.Context, id domain.ItemId) (*domain.TrackRecord, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

type playerFixture struct {
	player  *Player
	session *testutil.FakeSession
	cache   *cache.Cache
	output  *mock.Output
	bus     ports.EventBus
	rec     *eventRecorder
}

func newPlayerFixture(t *testing.T, session ports.Session) *playerFixture {
	t.Helper()
	t.Cleanup(func() { testutil.VerifyNoLeaks(t) })

	store, err := cache.New(t.TempDir())
	require.NoError(t, err)

	bus := eventbus.NewSyncEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	fake, _ := session.(*testutil.FakeSession)
	if session == nil {
		fake = testutil.NewFakeSession()
		session = fake
	}

	output := mock.NewOutput()
	player := NewPlayer(
		logger.NewTestLogger(),
		bus,
		session,
		store,
		&stubCdn{err: domain.NewTransportError("fetch", "", errors.New("no cdn in test"))},
		output,
		domain.DefaultPlaybackConfig(),
	)
	t.Cleanup(func() { _ = player.Close() })

	return &playerFixture{
		player:  player,
		session: fake,
		cache:   store,
		output:  output,
		bus:     bus,
		rec:     newEventRecorder(bus),
	}
}

// writeWavItem writes a short stereo WAV file and returns its local item.
func writeWavItem(t *testing.T, name string, frames int) domain.PlaybackItem {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 44100},
		SourceBitDepth: 16,
		Data:           make([]int, frames*2),
	}
	for i := 0; i < frames; i++ {
		v := int(12000 * math.Sin(2*math.Pi*220*float64(i)/44100))
		buf.Data[i*2] = v
		buf.Data[i*2+1] = v
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())

	return domain.PlaybackItem{ID: domain.ItemIdFromLocal(path)}
}

func trackItem(lo uint64) domain.PlaybackItem {
	return domain.PlaybackItem{ID: domain.NewItemId(0, lo, domain.ItemIdTypeTrack)}
}

func TestPlayerLoadQueueValidation(t *testing.T) {
	fx := newPlayerFixture(t, nil)

	err := fx.player.LoadQueue(nil, 0)
	assert.ErrorIs(t, err, domain.ErrQueueEmpty)

	items := []domain.PlaybackItem{writeWavItem(t, "a.wav", 64)}
	assert.ErrorIs(t, fx.player.LoadQueue(items, 1), domain.ErrInvalidQueuePosition)
	assert.ErrorIs(t, fx.player.LoadQueue(items, -1), domain.ErrInvalidQueuePosition)
}

func TestPlayerPlaysLocalFileToCompletion(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	item := writeWavItem(t, "song.wav", 2048)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))

	loaded := fx.rec.wait(t, domain.EventItemLoaded).(domain.ItemLoadedEvent)
	assert.Equal(t, item.ID, loaded.Item.ID)
	assert.Zero(t, loaded.Position)
	assert.NotZero(t, loaded.Duration)

	fx.rec.wait(t, domain.EventPlaybackStarted)
	assert.Equal(t, domain.StatePlaying, fx.player.State())

	current, ok := fx.player.Current()
	require.True(t, ok)
	assert.Equal(t, item.ID, current.ID)

	sink := fx.output.LastSink()
	require.NotNil(t, sink)
	require.NoError(t, sink.DrainAll())
	assert.Len(t, sink.Captured(), 2048*2)

	finished := fx.rec.wait(t, domain.EventItemFinished).(domain.ItemFinishedEvent)
	assert.Equal(t, item.ID, finished.Item.ID)
	fx.rec.wait(t, domain.EventQueueEnded)
	assert.Equal(t, domain.StateIdle, fx.player.State())
}

func TestPlayerAutoAdvancesThroughQueue(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	first := writeWavItem(t, "one.wav", 256)
	second := writeWavItem(t, "two.wav", 256)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{first, second}, 0))

	fx.rec.wait(t, domain.EventPlaybackStarted)
	require.NoError(t, fx.output.LastSink().DrainAll())

	loaded := fx.rec.wait(t, domain.EventItemLoaded).(domain.ItemLoadedEvent)
	assert.Equal(t, second.ID, loaded.Item.ID)
	assert.Equal(t, 1, loaded.Position)

	fx.rec.wait(t, domain.EventPlaybackStarted)
	require.NoError(t, fx.output.LastSink().DrainAll())

	fx.rec.wait(t, domain.EventQueueEnded)
	assert.Equal(t, domain.StateIdle, fx.player.State())
	assert.Equal(t, 2, fx.rec.count(domain.EventItemFinished))
}

func TestPlayerPauseAndResume(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	item := writeWavItem(t, "song.wav", 4096)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))
	fx.rec.wait(t, domain.EventPlaybackStarted)

	fx.player.Pause()
	fx.rec.wait(t, domain.EventPlaybackPaused)
	assert.Equal(t, domain.StatePaused, fx.player.State())
	assert.True(t, fx.output.LastSink().Paused())

	fx.player.Resume()
	fx.rec.wait(t, domain.EventPlaybackResumed)
	assert.Equal(t, domain.StatePlaying, fx.player.State())
	assert.False(t, fx.output.LastSink().Paused())
}

func TestPlayerIdleCommandsAreNoOps(t *testing.T) {
	fx := newPlayerFixture(t, nil)

	fx.player.Pause()
	fx.player.Resume()
	fx.player.Stop()
	fx.player.Next()
	fx.player.Previous()

	// Synchronize on a real command to know the above were consumed.
	item := writeWavItem(t, "song.wav", 64)
	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))
	fx.rec.wait(t, domain.EventPlaybackStarted)

	assert.Zero(t, fx.rec.count(domain.EventPlaybackPaused))
	assert.Zero(t, fx.rec.count(domain.EventPlaybackStopped))
	assert.Zero(t, fx.rec.count(domain.EventQueueEnded))
}

func TestPlayerStopReleasesStream(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	item := writeWavItem(t, "song.wav", 4096)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))
	fx.rec.wait(t, domain.EventPlaybackStarted)

	fx.player.Stop()
	fx.rec.wait(t, domain.EventPlaybackStopped)
	assert.Equal(t, domain.StateIdle, fx.player.State())

	sink := fx.output.LastSink()
	assert.Equal(t, 1, sink.StopCalls())
	assert.False(t, sink.Playing())

	_, ok := fx.player.Current()
	assert.False(t, ok)
}

func TestPlayerNextAdvancesAndStopsAtEnd(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	first := writeWavItem(t, "one.wav", 4096)
	second := writeWavItem(t, "two.wav", 4096)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{first, second}, 0))
	fx.rec.wait(t, domain.EventPlaybackStarted)

	fx.player.Next()
	loaded := fx.rec.wait(t, domain.EventItemLoaded).(domain.ItemLoadedEvent)
	assert.Equal(t, second.ID, loaded.Item.ID)
	fx.rec.wait(t, domain.EventPlaybackStarted)

	// Past the last item: no wrap-around.
	fx.player.Next()
	fx.rec.wait(t, domain.EventQueueEnded)
	assert.Equal(t, domain.StateIdle, fx.player.State())
}

func TestPlayerPreviousRestartsFirstItem(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	item := writeWavItem(t, "one.wav", 4096)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))
	fx.rec.wait(t, domain.EventPlaybackStarted)

	fx.player.Previous()
	loaded := fx.rec.wait(t, domain.EventItemLoaded).(domain.ItemLoadedEvent)
	assert.Equal(t, item.ID, loaded.Item.ID)
	assert.Zero(t, loaded.Position)
	fx.rec.wait(t, domain.EventPlaybackStarted)

	assert.GreaterOrEqual(t, fx.output.LastSink().PlayCalls(), 2)
}

func TestPlayerLoadFailureSkipsToNextItem(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	bad := trackItem(999) // no record anywhere
	good := writeWavItem(t, "good.wav", 256)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{bad, good}, 0))

	failure := fx.rec.wait(t, domain.EventPlaybackError).(domain.PlaybackErrorEvent)
	assert.Equal(t, bad.ID, failure.Item.ID)
	assert.ErrorIs(t, failure.Error, domain.ErrNotFound)

	started := fx.rec.wait(t, domain.EventPlaybackStarted).(domain.PlaybackStartedEvent)
	assert.Equal(t, good.ID, started.Item.ID)
}

func TestPlayerLoadFailureOnLastItemEndsQueue(t *testing.T) {
	fx := newPlayerFixture(t, nil)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{trackItem(999)}, 0))

	fx.rec.wait(t, domain.EventPlaybackError)
	fx.rec.wait(t, domain.EventQueueEnded)
	assert.Equal(t, domain.StateIdle, fx.player.State())
}

func TestPlayerTrackResolutionIsCacheFirst(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	item := trackItem(123)

	// A cached record with no playable rendition fails before the CDN,
	// proving the session was never consulted.
	require.NoError(t, fx.cache.SaveTrack(item.ID, &domain.TrackRecord{Name: "Cached"}))
	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))

	failure := fx.rec.wait(t, domain.EventPlaybackError).(domain.PlaybackErrorEvent)
	assert.ErrorIs(t, failure.Error, domain.ErrNoPlayableFile)
	assert.Zero(t, fx.session.GetTrackCalls)
}

func TestPlayerTrackFallbackWritesBackToCache(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	item := trackItem(123)
	fx.session.Tracks[item.ID] = &domain.TrackRecord{Name: "From Session"}

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))
	fx.rec.wait(t, domain.EventPlaybackError) // no playable file, after metadata

	assert.Equal(t, 1, fx.session.GetTrackCalls)
	record, err := fx.cache.GetTrack(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "From Session", record.Name)
}

func TestPlayerCdnFailureIsReported(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	item := trackItem(7)
	fx.session.Tracks[item.ID] = &domain.TrackRecord{
		Name: "Streamed",
		Files: []domain.AudioFileRef{
			{ID: domain.FileId{1}, Format: domain.FormatOggVorbis160},
		},
	}

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))

	failure := fx.rec.wait(t, domain.EventPlaybackError).(domain.PlaybackErrorEvent)
	assert.True(t, domain.IsRetryable(failure.Error))
	fx.rec.wait(t, domain.EventQueueEnded)
}

func TestPlayerUnknownItemTypeIsContentError(t *testing.T) {
	fx := newPlayerFixture(t, nil)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{{}}, 0))

	failure := fx.rec.wait(t, domain.EventPlaybackError).(domain.PlaybackErrorEvent)
	var contentErr *domain.ContentError
	assert.ErrorAs(t, failure.Error, &contentErr)
	fx.rec.wait(t, domain.EventQueueEnded)
}

func TestPlayerLocalMetadataProbedIntoCache(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	item := writeWavItem(t, "tagged.wav", 64)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))
	fx.rec.wait(t, domain.EventPlaybackStarted)

	record, err := fx.cache.GetTrack(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "tagged", record.Name)
}

func TestPlayerSetEqualizerWhilePlaying(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	item := writeWavItem(t, "song.wav", 2048)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))
	fx.rec.wait(t, domain.EventPlaybackStarted)

	preset, ok := domain.FindPreset("Bass Boost")
	require.True(t, ok)
	fx.player.SetEqualizer(domain.EqualizerConfig{Enabled: true, Bands: preset.Bands})

	// The new configuration is applied on the audio thread; playback
	// keeps flowing through it to completion.
	require.NoError(t, fx.output.LastSink().DrainAll())
	fx.rec.wait(t, domain.EventQueueEnded)
	assert.NotEmpty(t, fx.output.LastSink().Captured())
}

func TestPlayerStopCancelsInFlightLoad(t *testing.T) {
	session := newBlockingSession()
	fx := newPlayerFixture(t, session)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{trackItem(5)}, 0))

	select {
	case <-session.started:
	case <-time.After(eventTimeout):
		t.Fatal("load never reached the session")
	}
	assert.Equal(t, domain.StateLoading, fx.player.State())

	fx.player.Stop()
	fx.rec.wait(t, domain.EventPlaybackStopped)
	assert.Equal(t, domain.StateIdle, fx.player.State())
	assert.Zero(t, fx.rec.count(domain.EventPlaybackError), "cancelled load is dropped silently")
}

func TestPlayerNewLoadQueueSupersedesInFlightLoad(t *testing.T) {
	session := newBlockingSession()
	fx := newPlayerFixture(t, session)
	replacement := writeWavItem(t, "replacement.wav", 64)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{trackItem(5)}, 0))
	select {
	case <-session.started:
	case <-time.After(eventTimeout):
		t.Fatal("load never reached the session")
	}

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{replacement}, 0))

	started := fx.rec.wait(t, domain.EventPlaybackStarted).(domain.PlaybackStartedEvent)
	assert.Equal(t, replacement.ID, started.Item.ID)
	assert.Zero(t, fx.rec.count(domain.EventPlaybackError))
}

func TestPlayerCloseIsIdempotent(t *testing.T) {
	fx := newPlayerFixture(t, nil)
	item := writeWavItem(t, "song.wav", 4096)

	require.NoError(t, fx.player.LoadQueue([]domain.PlaybackItem{item}, 0))
	fx.rec.wait(t, domain.EventPlaybackStarted)

	require.NoError(t, fx.player.Close())
	require.NoError(t, fx.player.Close())
	assert.Equal(t, domain.StateIdle, fx.player.State())
	assert.True(t, fx.output.LastSink().Closed())
}
