package service

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/dsp"
	"github.com/isaaclins/psst/internal/ports"
)

// positionInterval throttles PositionChangedEvent publication.
const positionInterval = 500 * time.Millisecond

// pipeline chains decoding, loudness normalization and equalization behind
// one sample source pulled by the output sink. All filter state lives here
// and is touched only from ReadSamples, so the DSP chain is single-threaded
// by construction; reconfiguration arrives through an atomic handoff and is
// applied on the audio thread.
type pipeline struct {
	source   ports.SampleSource
	closer   io.Closer
	norm     *dsp.Normalizer
	eq       *dsp.Equalizer
	bus      ports.EventBus
	duration time.Duration

	pending atomic.Pointer[domain.EqualizerConfig]

	finished func()
	finOnce  sync.Once

	lastEmit time.Time // audio thread only
}

func newPipeline(
	loaded *loadedItem,
	norm *dsp.Normalizer,
	eq *dsp.Equalizer,
	bus ports.EventBus,
	finished func(),
) *pipeline {
	return &pipeline{
		source:   loaded.source,
		closer:   loaded.closer,
		norm:     norm,
		eq:       eq,
		bus:      bus,
		duration: loaded.duration,
		finished: finished,
	}
}

var _ ports.SampleSource = (*pipeline)(nil)

// ReadSamples pulls decoded samples and runs them through the DSP chain.
// The one-shot finished callback fires at natural end-of-stream.
func (p *pipeline) ReadSamples(buf []float32) (int, error) {
	if cfg := p.pending.Swap(nil); cfg != nil {
		p.eq.UpdateConfig(*cfg)
	}

	n, err := p.source.ReadSamples(buf)
	if n > 0 {
		p.norm.Process(buf[:n])
		p.eq.Process(buf[:n])
		p.emitPosition()
	}
	if err == io.EOF {
		p.finOnce.Do(p.finished)
	}
	return n, err
}

func (p *pipeline) emitPosition() {
	if !p.bus.HasSubscribers(domain.EventPositionChanged) {
		return
	}
	now := time.Now()
	if now.Sub(p.lastEmit) < positionInterval {
		return
	}
	p.lastEmit = now
	p.bus.Publish(domain.NewPositionChangedEvent(p.source.Position(), p.Duration()))
}

// Position reports the playback position within the stream. Only the audio
// thread may call this; the control loop observes position through events.
func (p *pipeline) Position() time.Duration {
	return p.source.Position()
}

// Duration prefers the stream's own length and falls back to the metadata
// record's.
func (p *pipeline) Duration() time.Duration {
	if d := p.source.Duration(); d > 0 {
		return d
	}
	return p.duration
}

// setEqualizer hands a new configuration to the audio thread. The last
// write before the next ReadSamples wins.
func (p *pipeline) setEqualizer(config domain.EqualizerConfig) {
	cfg := config
	p.pending.Store(&cfg)
}

// close releases the underlying stream. The sink must have been stopped or
// redirected first.
func (p *pipeline) close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
