// Package cdn fetches encrypted audio content from the content-delivery
// network. Locations and per-file keys come from the session; fetched
// files are written back through the cache, and reads are decrypted on
// the fly so playback can seek freely.
package cdn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/ports"
)

// Client resolves and fetches encrypted audio files.
type Client struct {
	logger  *slog.Logger
	session ports.Session
	cache   ports.Cache
	http    *http.Client
}

// New creates a CDN client. A nil httpClient falls back to a default
// client; request lifetimes are bounded by the caller's context either
// way.
func New(logger *slog.Logger, session ports.Session, cache ports.Cache, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		logger:  logger,
		session: session,
		cache:   cache,
		http:    httpClient,
	}
}

// OpenAudioFile obtains the decryption key and the encrypted bytes for a
// file, downloading and caching them when absent, and returns a seekable
// decrypted stream.
//
// Network failures are transport errors and retryable; a missing or
// unusable key is a content error and is not.
func (c *Client) OpenAudioFile(ctx context.Context, item domain.ItemId, file domain.FileId) (ports.AudioSource, error) {
	key, err := c.audioKey(ctx, item, file)
	if err != nil {
		return nil, err
	}

	src, err := c.cache.OpenAudio(file)
	if errors.Is(err, domain.ErrNotFound) {
		if err := c.download(ctx, item, file); err != nil {
			return nil, err
		}
		src, err = c.cache.OpenAudio(file)
	}
	if err != nil {
		return nil, err
	}

	source, err := newAudioSource(src, key)
	if err != nil {
		src.Close()
		return nil, domain.NewContentError(item, err)
	}
	return source, nil
}

// audioKey returns the per-file key, cache first, with write-back on a
// session fetch.
func (c *Client) audioKey(ctx context.Context, item domain.ItemId, file domain.FileId) ([]byte, error) {
	if key, err := c.cache.GetAudioKey(file); err == nil {
		return key, nil
	}
	key, err := c.session.AudioKey(ctx, item, file)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SaveAudioKey(file, key); err != nil {
		c.logger.Warn("failed to cache audio key", slog.Any("error", err))
	}
	return key, nil
}

// download resolves the file's location and streams the encrypted bytes
// into the cache.
func (c *Client) download(ctx context.Context, item domain.ItemId, file domain.FileId) error {
	url, err := c.session.ResolveAudioURL(ctx, file)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.NewTransportError("fetch", url, err)
	}
	req.Header.Set("Range", "bytes=0-")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewTransportError("fetch", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	case http.StatusNotFound, http.StatusGone, http.StatusForbidden:
		// The location is short-lived; a hard rejection means the content
		// itself is gone or the grant is unusable, not that the network
		// hiccuped.
		return domain.NewContentError(item, fmt.Errorf("cdn rejected fetch: %s", resp.Status))
	default:
		return domain.NewTransportError("fetch", url,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	if err := c.cache.SaveAudio(file, resp.Body); err != nil {
		return err
	}
	c.logger.Debug("audio file cached",
		slog.String("file", file.ToBase16()),
		slog.Int64("bytes", resp.ContentLength))
	return nil
}

// Verify that Client implements the ports.CdnClient interface
var _ ports.CdnClient = (*Client)(nil)
