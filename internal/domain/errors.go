// Package domain defines domain-specific errors.
// These errors represent the failure taxonomy of the streaming core and are
// independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrNotFound is returned when a cache entry or metadata record is
	// absent. Corrupted cache entries are deliberately reported as this
	// error rather than surfaced.
	ErrNotFound = errors.New("not found")

	// ErrAuthenticationFailed is returned when the access point rejects
	// the supplied credentials. Fatal to the session, never retried
	// automatically.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrSessionClosed is returned when an operation is attempted on a
	// closed or never-connected session.
	ErrSessionClosed = errors.New("session closed")

	// ErrQueueEmpty is returned when playback is requested with no queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrInvalidQueuePosition is returned when LoadQueue names a position
	// outside the queue.
	ErrInvalidQueuePosition = errors.New("invalid queue position")

	// ErrUnsupportedFormat is returned when no decoder exists for an
	// audio encoding.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrMissingAudioKey is returned when the session cannot supply a
	// decryption key for a file. Content-level, not retryable.
	ErrMissingAudioKey = errors.New("missing audio key")

	// ErrNoPlayableFile is returned when a metadata record lists no
	// rendition matching the configured bitrate.
	ErrNoPlayableFile = errors.New("no playable file for configured bitrate")

	// ErrOutputClosed is returned when an operation is attempted on a
	// closed audio sink.
	ErrOutputClosed = errors.New("audio output closed")
)

// TransportError represents a network or disk I/O failure.
// Transport errors are always propagated and are retryable at the caller's
// discretion.
type TransportError struct {
	Op   string // Operation that failed (e.g., "connect", "fetch")
	Addr string // Remote address or URL (if applicable)
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("transport %s failed for %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError.
func NewTransportError(op, addr string, err error) *TransportError {
	return &TransportError{Op: op, Addr: addr, Err: err}
}

// ProtocolError represents a malformed frame or payload received from the
// remote side. Protocol errors on the live session are propagated as a
// distinct kind and never silently ignored; for cache reads the same
// condition is downgraded to ErrNotFound before it leaves the cache.
type ProtocolError struct {
	Op      string // Operation that failed (e.g., "read_frame", "decode_record")
	Message string // What was malformed
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(op, message string, err error) *ProtocolError {
	return &ProtocolError{Op: op, Message: message, Err: err}
}

// ContentError represents a per-item content failure: a missing decryption
// key, an unsupported encoding, a record with no playable file. Content
// errors trigger the player's skip/report policy and never crash the
// control loop.
type ContentError struct {
	Item ItemId // Item the failure belongs to
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *ContentError) Error() string {
	return fmt.Sprintf("content error for %s: %v", e.Item, e.Err)
}

// Unwrap returns the underlying error.
func (e *ContentError) Unwrap() error {
	return e.Err
}

// NewContentError creates a new ContentError.
func NewContentError(item ItemId, err error) *ContentError {
	return &ContentError{Item: item, Err: err}
}

// IsRetryable reports whether an error is transient: transport failures
// are, everything else in the taxonomy is not.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
