// Package service provides the playback control core: a command-driven
// state machine that sequences queued items, resolves them through the
// cache, session and CDN, and drives an output sink with decoded,
// DSP-processed audio.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/isaaclins/psst/internal/decode"
	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/dsp"
	"github.com/isaaclins/psst/internal/ports"
)

// Player owns all playback state. A single control goroutine consumes
// commands in issue order from an unbounded mailbox; background loaders
// resolve and fetch items and report back through the same mailbox, tagged
// with a generation so a stale load can never clobber a newer command.
//
// Policy, tested explicitly:
//   - LoadQueue starts playback of the item at the given position.
//   - Natural end-of-stream advances to the next item; after the last item
//     the player returns to Idle.
//   - Next past the last item stops to Idle; there is no wrap-around.
//   - Previous at position 0 restarts item 0.
//   - Load failures are published as PlaybackErrorEvent and skip to the
//     next item.
type Player struct {
	logger  *slog.Logger
	bus     ports.EventBus
	session ports.Session
	cache   ports.Cache
	cdn     ports.CdnClient
	output  ports.AudioOutput
	config  domain.PlaybackConfig

	mailbox   *mailbox
	wg        sync.WaitGroup
	closeOnce sync.Once

	// State snapshot readable from any goroutine.
	mu      sync.RWMutex
	state   domain.PlayerState
	current domain.PlaybackItem
	hasItem bool

	// Control-loop-only state.
	queue      []domain.PlaybackItem
	index      int
	generation uint64
	loadCancel context.CancelFunc
	loadWg     sync.WaitGroup
	sink       ports.AudioSink
	pipeline   *pipeline
	eqConfig   domain.EqualizerConfig
}

// loadedItem is the result of resolving one queue entry: a decoded sample
// source plus the stream it must close when done.
type loadedItem struct {
	item       domain.PlaybackItem
	position   int
	source     ports.SampleSource
	closer     io.Closer
	sampleRate int
	duration   time.Duration
}

func (l *loadedItem) close() {
	if l.closer != nil {
		_ = l.closer.Close()
	}
}

// NewPlayer creates a player and starts its control loop.
func NewPlayer(
	logger *slog.Logger,
	bus ports.EventBus,
	session ports.Session,
	cache ports.Cache,
	cdn ports.CdnClient,
	output ports.AudioOutput,
	config domain.PlaybackConfig,
) *Player {
	p := &Player{
		logger:   logger,
		bus:      bus,
		session:  session,
		cache:    cache,
		cdn:      cdn,
		output:   output,
		config:   config,
		mailbox:  newMailbox(),
		state:    domain.StateIdle,
		eqConfig: config.Equalizer,
	}

	logger.Debug("player initialized",
		slog.Int("bitrate", int(config.Bitrate)),
		slog.Int("sample_rate", config.SampleRate))

	p.wg.Add(1)
	go p.run()
	return p
}

// LoadQueue replaces the queue and starts playback at position.
func (p *Player) LoadQueue(items []domain.PlaybackItem, position int) error {
	if len(items) == 0 {
		return domain.ErrQueueEmpty
	}
	if position < 0 || position >= len(items) {
		return fmt.Errorf("%w: %d of %d", domain.ErrInvalidQueuePosition, position, len(items))
	}

	queue := make([]domain.PlaybackItem, len(items))
	copy(queue, items)
	p.mailbox.put(command{kind: cmdLoadQueue, items: queue, position: position})
	return nil
}

// Pause suspends playback. A no-op unless playing.
func (p *Player) Pause() {
	p.mailbox.put(command{kind: cmdPause})
}

// Resume continues paused playback. A no-op unless paused.
func (p *Player) Resume() {
	p.mailbox.put(command{kind: cmdResume})
}

// Stop tears down the queue and returns to Idle. A no-op when idle.
func (p *Player) Stop() {
	p.mailbox.put(command{kind: cmdStop})
}

// Next advances to the next queued item; past the last item the player
// stops to Idle.
func (p *Player) Next() {
	p.mailbox.put(command{kind: cmdNext})
}

// Previous moves to the previous queued item; at position 0 it restarts
// the current item.
func (p *Player) Previous() {
	p.mailbox.put(command{kind: cmdPrevious})
}

// SetEqualizer applies a new equalizer configuration, live when something
// is playing and for every item after.
func (p *Player) SetEqualizer(config domain.EqualizerConfig) {
	cfg := config
	cfg.Bands = make([]domain.EqualizerBand, len(config.Bands))
	copy(cfg.Bands, config.Bands)
	p.mailbox.put(command{kind: cmdSetEqualizer, eq: cfg})
}

// State returns the player's coarse state.
func (p *Player) State() domain.PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Current returns the item the player is loading or playing.
func (p *Player) Current() (domain.PlaybackItem, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.hasItem
}

// Close shuts the player down: cancels in-flight loads, releases the sink
// and stops the control loop. Commands after Close are dropped.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		p.mailbox.close()
		p.wg.Wait()
	})
	return nil
}

// run is the control loop. It is the only goroutine that touches queue,
// sink and pipeline state.
func (p *Player) run() {
	defer p.wg.Done()
	defer p.teardown()

	for {
		cmd, ok := p.mailbox.take()
		if !ok {
			return
		}

		switch cmd.kind {
		case cmdLoadQueue:
			p.queue = cmd.items
			p.startLoad(cmd.position)
		case cmdPause:
			p.handlePause()
		case cmdResume:
			p.handleResume()
		case cmdStop:
			p.handleStop()
		case cmdNext:
			p.handleNext()
		case cmdPrevious:
			p.handlePrevious()
		case cmdSetEqualizer:
			p.handleSetEqualizer(cmd.eq)
		case cmdLoaded:
			p.handleLoaded(cmd)
		case cmdFinished:
			p.handleFinished(cmd.generation)
		}
	}
}

// startLoad cancels any in-flight load and begins resolving the item at
// position in a background goroutine.
func (p *Player) startLoad(position int) {
	p.cancelLoad()
	p.index = position
	item := p.queue[position]

	p.generation++
	gen := p.generation
	ctx, cancel := context.WithCancel(context.Background())
	p.loadCancel = cancel

	p.setState(domain.StateLoading, item, true)
	p.logger.Debug("loading item",
		slog.String("item", item.ID.String()),
		slog.Int("position", position))

	p.loadWg.Add(1)
	go func() {
		defer p.loadWg.Done()

		loaded, err := p.resolve(ctx, item, position)
		if err != nil && ctx.Err() != nil {
			return // superseded, nobody is waiting
		}
		if !p.mailbox.put(command{kind: cmdLoaded, generation: gen, loaded: loaded, err: err}) && loaded != nil {
			loaded.close()
		}
	}()
}

func (p *Player) handleLoaded(cmd command) {
	if cmd.generation != p.generation {
		// A newer command won; discard the stale result.
		if cmd.loaded != nil {
			cmd.loaded.close()
		}
		return
	}
	p.loadCancel = nil

	if cmd.err != nil {
		p.reportAndSkip(cmd.err)
		return
	}
	p.startPlayback(cmd.loaded)
}

// reportAndSkip publishes a load failure and advances to the next item, or
// to Idle when the queue is exhausted. The control loop never stalls on a
// bad item.
func (p *Player) reportAndSkip(err error) {
	item := p.queue[p.index]
	p.logger.Warn("item load failed",
		slog.String("item", item.ID.String()),
		slog.Any("error", err))
	p.bus.Publish(domain.NewPlaybackErrorEvent(item, err))

	if p.index+1 < len(p.queue) {
		p.startLoad(p.index + 1)
		return
	}
	p.toIdle(domain.NewQueueEndedEvent())
}

func (p *Player) startPlayback(loaded *loadedItem) {
	p.releasePipeline()

	rate := loaded.sampleRate
	if rate <= 0 {
		rate = p.config.SampleRate
	}
	if err := p.ensureSink(rate); err != nil {
		loaded.close()
		p.reportAndSkip(err)
		return
	}

	gen := p.generation
	pipe := newPipeline(
		loaded,
		dsp.NewNormalizer(loaded.item.NormLevel, p.config.NormalizationPregain),
		dsp.NewEqualizer(p.eqConfig, rate),
		p.bus,
		func() {
			p.mailbox.put(command{kind: cmdFinished, generation: gen})
		},
	)

	if err := p.sink.Play(pipe); err != nil {
		_ = pipe.close()
		p.reportAndSkip(err)
		return
	}
	p.pipeline = pipe

	p.setState(domain.StatePlaying, loaded.item, true)
	p.bus.Publish(domain.NewItemLoadedEvent(loaded.item, loaded.position, pipe.Duration()))
	p.bus.Publish(domain.NewPlaybackStartedEvent(loaded.item))
	p.logger.Info("playback started",
		slog.String("item", loaded.item.ID.String()),
		slog.Int("position", loaded.position))
}

// ensureSink opens the output at the stream's rate, replacing a sink opened
// at a different one.
func (p *Player) ensureSink(rate int) error {
	if p.sink != nil && p.sink.SampleRate() == rate {
		return nil
	}
	if p.sink != nil {
		if err := p.sink.Close(); err != nil {
			p.logger.Warn("failed to close sink", slog.Any("error", err))
		}
		p.sink = nil
	}

	sink, err := p.output.Open(rate, p.config.Channels)
	if err != nil {
		return err
	}
	p.sink = sink
	return nil
}

func (p *Player) handlePause() {
	if p.State() != domain.StatePlaying {
		return
	}
	if err := p.sink.Pause(); err != nil {
		p.logger.Warn("pause failed", slog.Any("error", err))
		return
	}
	item, _ := p.Current()
	p.setState(domain.StatePaused, item, true)
	p.bus.Publish(domain.NewPlaybackPausedEvent(item))
}

func (p *Player) handleResume() {
	if p.State() != domain.StatePaused {
		return
	}
	if err := p.sink.Resume(); err != nil {
		p.logger.Warn("resume failed", slog.Any("error", err))
		return
	}
	item, _ := p.Current()
	p.setState(domain.StatePlaying, item, true)
	p.bus.Publish(domain.NewPlaybackResumedEvent(item))
}

func (p *Player) handleStop() {
	if p.State() == domain.StateIdle {
		return
	}
	p.toIdle(domain.NewPlaybackStoppedEvent())
}

func (p *Player) handleNext() {
	if p.State() == domain.StateIdle {
		return
	}
	if p.index+1 < len(p.queue) {
		p.startLoad(p.index + 1)
		return
	}
	p.toIdle(domain.NewQueueEndedEvent())
}

func (p *Player) handlePrevious() {
	if p.State() == domain.StateIdle {
		return
	}
	if p.index > 0 {
		p.startLoad(p.index - 1)
		return
	}
	p.startLoad(0)
}

func (p *Player) handleSetEqualizer(config domain.EqualizerConfig) {
	p.eqConfig = config
	if p.pipeline != nil {
		p.pipeline.setEqualizer(config)
	}
	p.logger.Debug("equalizer updated",
		slog.Bool("enabled", config.Enabled),
		slog.Int("bands", len(config.Bands)))
}

// handleFinished reacts to natural end-of-stream reported by the audio
// thread. Stale notifications from replaced pipelines are ignored.
func (p *Player) handleFinished(generation uint64) {
	if generation != p.generation {
		return
	}

	item := p.queue[p.index]
	p.bus.Publish(domain.NewItemFinishedEvent(item, p.index))
	p.logger.Debug("item finished",
		slog.String("item", item.ID.String()),
		slog.Int("position", p.index))

	if p.index+1 < len(p.queue) {
		p.startLoad(p.index + 1)
		return
	}
	p.toIdle(domain.NewQueueEndedEvent())
}

// toIdle cancels loading, releases the sink's active stream and tears down
// the queue, then publishes final. The generation bump invalidates any
// loader result or end-of-stream notification still in flight.
func (p *Player) toIdle(final domain.Event) {
	p.cancelLoad()
	p.generation++
	p.releasePipeline()
	if p.sink != nil {
		if err := p.sink.Stop(); err != nil {
			p.logger.Warn("sink stop failed", slog.Any("error", err))
		}
	}
	p.queue = nil
	p.index = 0
	p.setState(domain.StateIdle, domain.PlaybackItem{}, false)
	p.bus.Publish(final)
}

func (p *Player) cancelLoad() {
	if p.loadCancel != nil {
		p.loadCancel()
		p.loadCancel = nil
	}
}

func (p *Player) releasePipeline() {
	if p.pipeline == nil {
		return
	}
	if err := p.pipeline.close(); err != nil {
		p.logger.Warn("failed to close stream", slog.Any("error", err))
	}
	p.pipeline = nil
}

func (p *Player) setState(state domain.PlayerState, item domain.PlaybackItem, hasItem bool) {
	p.mu.Lock()
	p.state = state
	p.current = item
	p.hasItem = hasItem
	p.mu.Unlock()
}

// teardown runs when the control loop exits.
func (p *Player) teardown() {
	p.cancelLoad()
	p.loadWg.Wait()
	p.releasePipeline()
	if p.sink != nil {
		if err := p.sink.Close(); err != nil {
			p.logger.Warn("failed to close sink", slog.Any("error", err))
		}
		p.sink = nil
	}
	p.setState(domain.StateIdle, domain.PlaybackItem{}, false)
}

// resolve turns one queue entry into a decoded sample source. It runs on a
// background goroutine and is the only part of the player that blocks on
// network or disk.
func (p *Player) resolve(ctx context.Context, item domain.PlaybackItem, position int) (*loadedItem, error) {
	switch item.ID.Type {
	case domain.ItemIdTypeTrack:
		return p.resolveTrack(ctx, item, position)
	case domain.ItemIdTypePodcast:
		return p.resolveEpisode(ctx, item, position)
	case domain.ItemIdTypeLocalFile:
		return p.resolveLocal(item, position)
	default:
		return nil, domain.NewContentError(item.ID, fmt.Errorf("unplayable item type %s", item.ID.Type))
	}
}

// resolveTrack looks up metadata cache-first, falls back to the session
// with a cache write-back, then opens and decodes the CDN file.
func (p *Player) resolveTrack(ctx context.Context, item domain.PlaybackItem, position int) (*loadedItem, error) {
	record, err := p.cache.GetTrack(item.ID)
	if errors.Is(err, domain.ErrNotFound) {
		record, err = p.session.GetTrack(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if saveErr := p.cache.SaveTrack(item.ID, record); saveErr != nil {
			p.logger.Warn("failed to cache track record", slog.Any("error", saveErr))
		}
	} else if err != nil {
		return nil, err
	}

	file, ok := record.FileForBitrate(p.config.Bitrate)
	if !ok {
		return nil, domain.NewContentError(item.ID, domain.ErrNoPlayableFile)
	}
	duration := time.Duration(record.DurationMs) * time.Millisecond
	return p.openEncoded(ctx, item, position, file, duration)
}

func (p *Player) resolveEpisode(ctx context.Context, item domain.PlaybackItem, position int) (*loadedItem, error) {
	record, err := p.cache.GetEpisode(item.ID)
	if errors.Is(err, domain.ErrNotFound) {
		record, err = p.session.GetEpisode(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if saveErr := p.cache.SaveEpisode(item.ID, record); saveErr != nil {
			p.logger.Warn("failed to cache episode record", slog.Any("error", saveErr))
		}
	} else if err != nil {
		return nil, err
	}

	var file domain.AudioFileRef
	found := false
	for _, f := range record.Files {
		if f.Format.Bitrate() == p.config.Bitrate {
			file, found = f, true
			break
		}
	}
	if !found {
		return nil, domain.NewContentError(item.ID, domain.ErrNoPlayableFile)
	}
	duration := time.Duration(record.DurationMs) * time.Millisecond
	return p.openEncoded(ctx, item, position, file, duration)
}

func (p *Player) openEncoded(ctx context.Context, item domain.PlaybackItem, position int, file domain.AudioFileRef, duration time.Duration) (*loadedItem, error) {
	audio, err := p.cdn.OpenAudioFile(ctx, item.ID, file.ID)
	if err != nil {
		return nil, err
	}

	source, err := decode.NewSource(audio, file.Format)
	if err != nil {
		_ = audio.Close()
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return nil, domain.NewContentError(item.ID, err)
		}
		return nil, err
	}

	return &loadedItem{
		item:       item,
		position:   position,
		source:     source,
		closer:     audio,
		sampleRate: sourceRate(source),
		duration:   duration,
	}, nil
}

// resolveLocal decodes a file straight from disk. Its embedded tags are
// probed into the cache so front-ends can display metadata for local items
// the same way they do for streamed ones.
func (p *Player) resolveLocal(item domain.PlaybackItem, position int) (*loadedItem, error) {
	path := item.ID.ToLocal()

	source, err := decode.OpenLocal(path)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return nil, domain.NewContentError(item.ID, err)
		}
		return nil, err
	}

	if record, probeErr := decode.ProbeLocal(path); probeErr == nil {
		if saveErr := p.cache.SaveTrack(item.ID, record); saveErr != nil {
			p.logger.Warn("failed to cache local metadata", slog.Any("error", saveErr))
		}
	}

	closer, _ := source.(io.Closer)
	return &loadedItem{
		item:       item,
		position:   position,
		source:     source,
		closer:     closer,
		sampleRate: sourceRate(source),
		duration:   source.Duration(),
	}, nil
}

func sourceRate(source ports.SampleSource) int {
	if r, ok := source.(decode.RateReporter); ok {
		return r.SampleRate()
	}
	return 0
}
