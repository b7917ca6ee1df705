// Package main is the psst command line player.
//
// Usage:
//
//	psst [flags] <track-id> [preset]
//
// The track id is the 22-character base62 form. The optional preset names a
// built-in equalizer preset. Credentials come from the SPOTIFY_USERNAME and
// SPOTIFY_PASSWORD environment variables.
//
// While playing, single-letter commands on stdin control playback:
// p pause, r resume, s stop, < previous, > next, q quit.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/isaaclins/psst/internal/app"
	"github.com/isaaclins/psst/internal/config"
	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/service"
)

const connectTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "psst: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = pflag.String("config", "", "path to a YAML configuration file")
		cacheDir   = pflag.String("cache-dir", "", "override the cache directory")
		logLevel   = pflag.String("log-level", "", "log level: debug, info, warn, error")
		logFormat  = pflag.String("log-format", "", "log format: text or json")
	)
	pflag.Parse()
	args := pflag.Args()

	if len(args) < 1 {
		return errors.New("missing track id\nusage: psst [flags] <track-id> [preset]")
	}
	id, ok := domain.ItemIdFromBase62(args[0], domain.ItemIdTypeTrack)
	if !ok {
		return fmt.Errorf("invalid track id %q: expected 22 base62 characters", args[0])
	}

	username := os.Getenv("SPOTIFY_USERNAME")
	if username == "" {
		return errors.New("SPOTIFY_USERNAME environment variable is not set")
	}
	password := os.Getenv("SPOTIFY_PASSWORD")
	if password == "" {
		return errors.New("SPOTIFY_PASSWORD environment variable is not set")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if len(args) >= 2 {
		if _, ok := domain.FindPreset(args[1]); !ok {
			return fmt.Errorf("unknown equalizer preset %q", args[1])
		}
		cfg.Equalizer.Enabled = true
		cfg.Equalizer.Preset = args[1]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Integration test hook: everything above ran, nothing touched the
	// network yet.
	if os.Getenv("PSST_CLI_TEST_MODE") != "" {
		fmt.Printf("test mode: would play %s\n", id.ToBase62())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	application, err := app.New(connectCtx, app.Options{
		Config:      cfg,
		Credentials: domain.NewPasswordCredentials(username, password),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Shutdown(); err != nil {
			application.Logger().Warn("shutdown failed", slog.Any("error", err))
		}
	}()

	done := make(chan struct{})
	subscribeDisplay(application, done)

	player := application.Player()
	item := domain.PlaybackItem{ID: id, NormLevel: cfg.NormalizationLevel()}
	if err := player.LoadQueue([]domain.PlaybackItem{item}, 0); err != nil {
		return err
	}

	go readCommands(player, done)

	select {
	case <-ctx.Done():
		fmt.Println("\ninterrupted")
	case <-done:
	}
	return nil
}

// subscribeDisplay prints playback progress and closes done when the queue
// is finished or playback is stopped.
func subscribeDisplay(application *app.Application, done chan struct{}) {
	bus := application.Bus()
	finish := func() {
		select {
		case <-done:
		default:
			close(done)
		}
	}

	bus.Subscribe(domain.EventItemLoaded, func(event domain.Event) {
		e := event.(domain.ItemLoadedEvent)
		name := e.Item.ID.ToBase62()
		if record, err := application.Cache().GetTrack(e.Item.ID); err == nil {
			name = fmt.Sprintf("%s - %s", strings.Join(record.Artists, ", "), record.Name)
		}
		fmt.Printf("loaded %s (%s)\n", name, e.Duration.Round(time.Second))
	})
	bus.Subscribe(domain.EventPlaybackStarted, func(domain.Event) {
		fmt.Println("playing")
	})
	bus.Subscribe(domain.EventPlaybackPaused, func(domain.Event) {
		fmt.Println("paused")
	})
	bus.Subscribe(domain.EventPlaybackResumed, func(domain.Event) {
		fmt.Println("resumed")
	})
	bus.Subscribe(domain.EventPlaybackError, func(event domain.Event) {
		e := event.(domain.PlaybackErrorEvent)
		fmt.Fprintf(os.Stderr, "playback error: %v\n", e.Error)
	})
	bus.Subscribe(domain.EventSessionLost, func(event domain.Event) {
		e := event.(domain.SessionLostEvent)
		fmt.Fprintf(os.Stderr, "session lost: %v\n", e.Error)
		finish()
	})
	bus.Subscribe(domain.EventPlaybackStopped, func(domain.Event) {
		fmt.Println("stopped")
		finish()
	})
	bus.Subscribe(domain.EventQueueEnded, func(domain.Event) {
		finish()
	})
}

// readCommands drives the player from stdin until quit or EOF.
func readCommands(player *service.Player, done chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-done:
			return
		default:
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "p":
			player.Pause()
		case "r":
			player.Resume()
		case "s":
			player.Stop()
		case "<":
			player.Previous()
		case ">":
			player.Next()
		case "q":
			player.Stop()
			return
		case "":
		default:
			fmt.Println("commands: p pause, r resume, s stop, < previous, > next, q quit")
		}
	}
}
