// Package app provides application-level orchestration and dependency
// injection. It wires the cache, session, CDN client, output backend and
// player together and manages their lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/isaaclins/psst/internal/adapter/accesspoint"
	beepout "github.com/isaaclins/psst/internal/adapter/audio/beep"
	"github.com/isaaclins/psst/internal/adapter/audio/mock"
	"github.com/isaaclins/psst/internal/adapter/cache"
	"github.com/isaaclins/psst/internal/adapter/cdn"
	"github.com/isaaclins/psst/internal/adapter/eventbus"
	"github.com/isaaclins/psst/internal/config"
	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/logger"
	"github.com/isaaclins/psst/internal/ports"
	"github.com/isaaclins/psst/internal/service"
)

// Options configure application construction. Session and Output are
// injection points for tests; left nil, the real access point connection
// and the configured audio backend are used.
type Options struct {
	Config      config.Config
	Credentials domain.Credentials

	Session ports.Session
	Output  ports.AudioOutput
}

// Application is the root structure holding all wired components.
type Application struct {
	logger  *slog.Logger
	bus     ports.EventBus
	cache   *cache.Cache
	session ports.Session
	player  *service.Player
}

// New creates an application with all dependencies wired: logger, event
// bus, cache, authenticated session, CDN client, output backend and player.
// The context bounds the connection and authentication handshake.
func New(ctx context.Context, opts Options) (*Application, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg.LoggerConfig())
	log.Info("initializing", slog.String("version", GetVersionInfo().FullString()))

	bus := eventbus.NewSyncEventBus()
	bus.SetLogger(log.With(slog.String("component", "eventbus")))

	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	session := opts.Session
	if session == nil {
		session, err = accesspoint.Connect(ctx,
			log.With(slog.String("component", "session")),
			bus,
			accesspoint.Config{
				Addr:       cfg.AccessPoint,
				Proxy:      cfg.Proxy,
				DeviceName: cfg.DeviceName,
			},
			opts.Credentials,
		)
		if err != nil {
			_ = bus.Close()
			return nil, err
		}
	}

	output := opts.Output
	if output == nil {
		switch cfg.AudioBackend {
		case config.BackendMock:
			output = mock.NewOutput()
		default:
			output = beepout.NewOutput(log.With(slog.String("component", "audio")))
		}
	}

	cdnClient := cdn.New(
		log.With(slog.String("component", "cdn")),
		session,
		store,
		nil,
	)

	player := service.NewPlayer(
		log.With(slog.String("component", "player")),
		bus,
		session,
		store,
		cdnClient,
		output,
		cfg.PlaybackConfig(),
	)

	return &Application{
		logger:  log,
		bus:     bus,
		cache:   store,
		session: session,
		player:  player,
	}, nil
}

// Logger returns the application root logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Bus returns the event bus front-ends subscribe to.
func (a *Application) Bus() ports.EventBus {
	return a.bus
}

// Player returns the playback engine.
func (a *Application) Player() *service.Player {
	return a.player
}

// Session returns the session handle.
func (a *Application) Session() ports.Session {
	return a.session
}

// Cache returns the content cache.
func (a *Application) Cache() *cache.Cache {
	return a.cache
}

// Shutdown tears the application down in reverse construction order.
func (a *Application) Shutdown() error {
	a.logger.Info("shutting down")

	var firstErr error
	if err := a.player.Close(); err != nil {
		firstErr = err
	}
	if err := a.session.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.bus.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
