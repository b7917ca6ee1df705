package accesspoint

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/isaaclins/psst/internal/domain"
	"github.com/isaaclins/psst/internal/ports"
)

// Config carries the connection parameters for one session.
type Config struct {
	// Addr is the access point address as host:port.
	Addr string

	// Proxy is an optional outbound HTTP proxy as host:port; when set the
	// TCP connection is tunneled through it with a CONNECT request.
	Proxy string

	// DeviceName is reported during authentication.
	DeviceName string

	// DialTimeout bounds the TCP connect. Zero means no explicit bound
	// beyond the context.
	DialTimeout time.Duration

	// Random overrides the entropy source for the handshake. Nil means
	// crypto/rand.
	Random io.Reader
}

type frameMsg struct {
	cmd     byte
	payload []byte
}

// Session is the authenticated encrypted channel to the access point.
//
// One reader goroutine owns the decoder and routes tagged responses to
// waiting requests; writes are serialized by a mutex so frame nonces stay
// in lockstep with the wire.
type Session struct {
	logger   *slog.Logger
	bus      ports.EventBus
	conn     net.Conn
	deviceID string

	writeMu sync.Mutex
	enc     *frameEncoder

	mu      sync.Mutex
	pending map[uint32]chan frameMsg
	nextTag uint32
	closed  bool

	closeOnce sync.Once
	closing   chan struct{} // closed by Close, suppresses the lost event
	done      chan struct{} // closed when the reader exits
	username  string
	token     string
}

// Credential type tags in the authentication request.
const (
	authTypePassword = 0
	authTypeToken    = 1
)

// Connect dials the access point, runs the handshake and authenticates.
// A rejected credential comes back as domain.ErrAuthenticationFailed;
// network failures and malformed server behavior stay distinguishable as
// transport and protocol errors.
func Connect(ctx context.Context, logger *slog.Logger, bus ports.EventBus, cfg Config, creds domain.Credentials) (*Session, error) {
	conn, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}

	keys, err := clientHandshake(conn, cfg.Random)
	if err != nil {
		conn.Close()
		return nil, err
	}

	s := &Session{
		logger:   logger,
		bus:      bus,
		conn:     conn,
		deviceID: uuid.NewString(),
		enc:      newFrameEncoder(conn, keys.sendKey[:]),
		pending:  make(map[uint32]chan frameMsg),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	dec := newFrameDecoder(conn, keys.recvKey[:])

	if err := s.authenticate(dec, cfg, creds); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("session established",
		slog.String("addr", cfg.Addr),
		slog.String("username", s.username))
	if bus != nil {
		bus.Publish(domain.NewSessionConnectedEvent(s.username))
	}

	go s.readLoop(dec)
	return s, nil
}

func dial(ctx context.Context, cfg Config) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}

	target := cfg.Addr
	if cfg.Proxy != "" {
		target = cfg.Proxy
	}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, domain.NewTransportError("connect", target, err)
	}

	if cfg.Proxy != "" {
		if err := proxyConnect(conn, cfg.Proxy, cfg.Addr); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// proxyConnect tunnels through an HTTP proxy with a CONNECT request.
func proxyConnect(conn net.Conn, proxy, target string) error {
	req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n\r\n", target, target)
	if _, err := io.WriteString(conn, req); err != nil {
		return domain.NewTransportError("proxy_connect", proxy, err)
	}
	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, &http.Request{Method: http.MethodConnect})
	if err != nil {
		return domain.NewTransportError("proxy_connect", proxy, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.NewProtocolError("proxy_connect",
			fmt.Sprintf("proxy refused tunnel: %s", resp.Status), nil)
	}
	if br.Buffered() > 0 {
		return domain.NewProtocolError("proxy_connect", "unexpected data after tunnel", nil)
	}
	return nil
}

// authenticate runs the credential exchange on the freshly keyed channel.
// The access token wins when both forms are present.
func (s *Session) authenticate(dec *frameDecoder, cfg Config, creds domain.Credentials) error {
	var w payloadWriter
	w.writeString(s.deviceID)
	w.writeString(cfg.DeviceName)
	if creds.HasToken() {
		w.writeByte(authTypeToken)
		w.writeString("")
		w.writeString(creds.AuthToken)
	} else {
		w.writeByte(authTypePassword)
		w.writeString(creds.Username)
		w.writeString(creds.Password)
	}

	if err := s.enc.WriteFrame(cmdAuthRequest, w.bytes()); err != nil {
		return err
	}

	cmd, payload, err := dec.ReadFrame()
	if err != nil {
		return err
	}
	switch cmd {
	case cmdAuthAccepted:
		r := newPayloadReader(payload)
		s.username = r.readString()
		s.token = r.readString()
		if err := r.finish(); err != nil {
			return domain.NewProtocolError("authenticate", "malformed welcome", err)
		}
		return nil
	case cmdAuthRejected:
		r := newPayloadReader(payload)
		reason := r.readString()
		s.logger.Warn("authentication rejected", slog.String("reason", reason))
		return fmt.Errorf("%w: %s", domain.ErrAuthenticationFailed, reason)
	default:
		return domain.NewProtocolError("authenticate",
			fmt.Sprintf("unexpected command 0x%02x", cmd), nil)
	}
}

// Username returns the canonical account name confirmed by the access
// point.
func (s *Session) Username() string { return s.username }

// ReusableToken returns the refreshed credential token for persisting a
// login across runs. Empty when the access point issued none.
func (s *Session) ReusableToken() string { return s.token }

// readLoop owns the decoder: it answers pings and routes tagged responses
// until the connection dies or Close is called.
func (s *Session) readLoop(dec *frameDecoder) {
	defer close(s.done)
	for {
		cmd, payload, err := dec.ReadFrame()
		if err != nil {
			s.fail(err)
			return
		}
		switch cmd {
		case cmdPing:
			s.writeMu.Lock()
			werr := s.enc.WriteFrame(cmdPong, payload)
			s.writeMu.Unlock()
			if werr != nil {
				s.fail(werr)
				return
			}
		default:
			if len(payload) < 4 {
				s.fail(domain.NewProtocolError("read_frame", "response missing tag", nil))
				return
			}
			tag := binary.BigEndian.Uint32(payload[:4])
			s.mu.Lock()
			ch, ok := s.pending[tag]
			delete(s.pending, tag)
			s.mu.Unlock()
			if !ok {
				s.logger.Warn("dropping response with unknown tag",
					slog.Uint64("tag", uint64(tag)))
				continue
			}
			ch <- frameMsg{cmd: cmd, payload: payload[4:]}
		}
	}
}

// fail tears the session down after a wire error, waking every pending
// request. Deliberate Close does not publish a lost event.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.conn.Close()
	for _, ch := range pending {
		close(ch)
	}

	select {
	case <-s.closing:
	default:
		s.logger.Error("session lost", slog.Any("error", err))
		if s.bus != nil {
			s.bus.Publish(domain.NewSessionLostEvent(err))
		}
	}
}

// request sends one tagged command and waits for its routed response.
func (s *Session) request(ctx context.Context, cmd byte, build func(w *payloadWriter)) (frameMsg, error) {
	if err := ctx.Err(); err != nil {
		return frameMsg{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return frameMsg{}, domain.ErrSessionClosed
	}
	tag := s.nextTag
	s.nextTag++
	ch := make(chan frameMsg, 1)
	s.pending[tag] = ch
	s.mu.Unlock()

	forget := func() {
		s.mu.Lock()
		delete(s.pending, tag)
		s.mu.Unlock()
	}

	var w payloadWriter
	w.writeUint32(tag)
	build(&w)

	s.writeMu.Lock()
	err := s.enc.WriteFrame(cmd, w.bytes())
	s.writeMu.Unlock()
	if err != nil {
		forget()
		return frameMsg{}, err
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return frameMsg{}, domain.ErrSessionClosed
		}
		return msg, nil
	case <-ctx.Done():
		forget()
		return frameMsg{}, ctx.Err()
	}
}

// GetTrack fetches the metadata record for a track.
func (s *Session) GetTrack(ctx context.Context, id domain.ItemId) (*domain.TrackRecord, error) {
	raw := id.ToRaw()
	msg, err := s.request(ctx, cmdTrackRequest, func(w *payloadWriter) {
		w.writeRaw(raw[:])
	})
	if err != nil {
		return nil, err
	}
	switch msg.cmd {
	case cmdTrackResponse:
		r := newPayloadReader(msg.payload)
		if !r.readBool() {
			return nil, domain.ErrNotFound
		}
		record := readTrackRecord(r)
		if err := r.finish(); err != nil {
			return nil, domain.NewProtocolError("get_track", "malformed record", err)
		}
		return record, nil
	case cmdErrorResponse:
		return nil, serverError("get_track", msg.payload)
	default:
		return nil, unexpectedResponse("get_track", msg.cmd)
	}
}

// GetEpisode fetches the metadata record for a podcast episode.
func (s *Session) GetEpisode(ctx context.Context, id domain.ItemId) (*domain.EpisodeRecord, error) {
	raw := id.ToRaw()
	msg, err := s.request(ctx, cmdEpisodeRequest, func(w *payloadWriter) {
		w.writeRaw(raw[:])
	})
	if err != nil {
		return nil, err
	}
	switch msg.cmd {
	case cmdEpisodeResponse:
		r := newPayloadReader(msg.payload)
		if !r.readBool() {
			return nil, domain.ErrNotFound
		}
		record := readEpisodeRecord(r)
		if err := r.finish(); err != nil {
			return nil, domain.NewProtocolError("get_episode", "malformed record", err)
		}
		return record, nil
	case cmdErrorResponse:
		return nil, serverError("get_episode", msg.payload)
	default:
		return nil, unexpectedResponse("get_episode", msg.cmd)
	}
}

// AudioKey obtains the per-file decryption key for an encoded file.
func (s *Session) AudioKey(ctx context.Context, item domain.ItemId, file domain.FileId) ([]byte, error) {
	raw := item.ToRaw()
	msg, err := s.request(ctx, cmdKeyRequest, func(w *payloadWriter) {
		w.writeRaw(raw[:])
		w.writeRaw(file[:])
	})
	if err != nil {
		return nil, err
	}
	switch msg.cmd {
	case cmdKeySuccess:
		r := newPayloadReader(msg.payload)
		key := r.readBytes()
		if err := r.finish(); err != nil {
			return nil, domain.NewProtocolError("audio_key", "malformed key", err)
		}
		return key, nil
	case cmdKeyFailure:
		return nil, domain.NewContentError(item, domain.ErrMissingAudioKey)
	case cmdErrorResponse:
		return nil, serverError("audio_key", msg.payload)
	default:
		return nil, unexpectedResponse("audio_key", msg.cmd)
	}
}

// ResolveAudioURL obtains a short-lived CDN location for a file.
func (s *Session) ResolveAudioURL(ctx context.Context, file domain.FileId) (string, error) {
	msg, err := s.request(ctx, cmdURLRequest, func(w *payloadWriter) {
		w.writeRaw(file[:])
	})
	if err != nil {
		return "", err
	}
	switch msg.cmd {
	case cmdURLResponse:
		r := newPayloadReader(msg.payload)
		url := r.readString()
		if err := r.finish(); err != nil {
			return "", domain.NewProtocolError("resolve_audio_url", "malformed url", err)
		}
		if strings.TrimSpace(url) == "" {
			return "", domain.NewProtocolError("resolve_audio_url", "empty url", nil)
		}
		return url, nil
	case cmdErrorResponse:
		return "", serverError("resolve_audio_url", msg.payload)
	default:
		return "", unexpectedResponse("resolve_audio_url", msg.cmd)
	}
}

// Connected reports whether the channel is up and authenticated.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close tears down the channel and waits for the reader to exit.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closing) })
	s.fail(domain.ErrSessionClosed)
	<-s.done
	return nil
}

func serverError(op string, payload []byte) error {
	r := newPayloadReader(payload)
	message := r.readString()
	return domain.NewProtocolError(op, message, nil)
}

func unexpectedResponse(op string, cmd byte) error {
	return domain.NewProtocolError(op, fmt.Sprintf("unexpected command 0x%02x", cmd), nil)
}

// Verify that Session implements the ports.Session interface
var _ ports.Session = (*Session)(nil)
