// Package domain defines events for the event-driven architecture.
// Background workers surface failures as events to the control loop instead
// of crashing their goroutine; front-ends observe playback through the same
// event stream.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback lifecycle events
	EventItemLoaded      EventType = "player.item_loaded"
	EventPlaybackStarted EventType = "player.started"
	EventPlaybackPaused  EventType = "player.paused"
	EventPlaybackResumed EventType = "player.resumed"
	EventPlaybackStopped EventType = "player.stopped"
	EventItemFinished    EventType = "player.item_finished"
	EventQueueEnded      EventType = "player.queue_ended"
	EventPlaybackError   EventType = "player.error"
	EventPositionChanged EventType = "player.position"

	// Session events
	EventSessionConnected EventType = "session.connected"
	EventSessionLost      EventType = "session.lost"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// ItemLoadedEvent is published when an item is resolved, fetched and ready
// to play.
type ItemLoadedEvent struct {
	baseEvent
	Item     PlaybackItem
	Position int // Queue position
	Duration time.Duration
}

// Type returns the event type.
func (e ItemLoadedEvent) Type() EventType {
	return EventItemLoaded
}

// NewItemLoadedEvent creates a new ItemLoadedEvent.
func NewItemLoadedEvent(item PlaybackItem, position int, duration time.Duration) ItemLoadedEvent {
	return ItemLoadedEvent{
		baseEvent: newBaseEvent(),
		Item:      item,
		Position:  position,
		Duration:  duration,
	}
}

// PlaybackStartedEvent is published when audio starts flowing to the sink.
type PlaybackStartedEvent struct {
	baseEvent
	Item PlaybackItem
}

// Type returns the event type.
func (e PlaybackStartedEvent) Type() EventType {
	return EventPlaybackStarted
}

// NewPlaybackStartedEvent creates a new PlaybackStartedEvent.
func NewPlaybackStartedEvent(item PlaybackItem) PlaybackStartedEvent {
	return PlaybackStartedEvent{baseEvent: newBaseEvent(), Item: item}
}

// PlaybackPausedEvent is published when playback is paused.
type PlaybackPausedEvent struct {
	baseEvent
	Item PlaybackItem
}

// Type returns the event type.
func (e PlaybackPausedEvent) Type() EventType {
	return EventPlaybackPaused
}

// NewPlaybackPausedEvent creates a new PlaybackPausedEvent.
func NewPlaybackPausedEvent(item PlaybackItem) PlaybackPausedEvent {
	return PlaybackPausedEvent{baseEvent: newBaseEvent(), Item: item}
}

// PlaybackResumedEvent is published when paused playback resumes.
type PlaybackResumedEvent struct {
	baseEvent
	Item PlaybackItem
}

// Type returns the event type.
func (e PlaybackResumedEvent) Type() EventType {
	return EventPlaybackResumed
}

// NewPlaybackResumedEvent creates a new PlaybackResumedEvent.
func NewPlaybackResumedEvent(item PlaybackItem) PlaybackResumedEvent {
	return PlaybackResumedEvent{baseEvent: newBaseEvent(), Item: item}
}

// PlaybackStoppedEvent is published when playback stops and the sink stream
// is released.
type PlaybackStoppedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e PlaybackStoppedEvent) Type() EventType {
	return EventPlaybackStopped
}

// NewPlaybackStoppedEvent creates a new PlaybackStoppedEvent.
func NewPlaybackStoppedEvent() PlaybackStoppedEvent {
	return PlaybackStoppedEvent{baseEvent: newBaseEvent()}
}

// ItemFinishedEvent is published when an item reaches natural end-of-stream.
type ItemFinishedEvent struct {
	baseEvent
	Item     PlaybackItem
	Position int // Queue position of the finished item
}

// Type returns the event type.
func (e ItemFinishedEvent) Type() EventType {
	return EventItemFinished
}

// NewItemFinishedEvent creates a new ItemFinishedEvent.
func NewItemFinishedEvent(item PlaybackItem, position int) ItemFinishedEvent {
	return ItemFinishedEvent{baseEvent: newBaseEvent(), Item: item, Position: position}
}

// QueueEndedEvent is published when the queue is exhausted and the player
// returns to idle.
type QueueEndedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e QueueEndedEvent) Type() EventType {
	return EventQueueEnded
}

// NewQueueEndedEvent creates a new QueueEndedEvent.
func NewQueueEndedEvent() QueueEndedEvent {
	return QueueEndedEvent{baseEvent: newBaseEvent()}
}

// PlaybackErrorEvent is published when loading or decoding an item fails.
// The player reports the failure and skips per its documented policy; it
// never stalls silently.
type PlaybackErrorEvent struct {
	baseEvent
	Item  PlaybackItem
	Error error
}

// Type returns the event type.
func (e PlaybackErrorEvent) Type() EventType {
	return EventPlaybackError
}

// NewPlaybackErrorEvent creates a new PlaybackErrorEvent.
func NewPlaybackErrorEvent(item PlaybackItem, err error) PlaybackErrorEvent {
	return PlaybackErrorEvent{baseEvent: newBaseEvent(), Item: item, Error: err}
}

// PositionChangedEvent is published periodically during playback.
type PositionChangedEvent struct {
	baseEvent
	Position time.Duration
	Duration time.Duration
}

// Type returns the event type.
func (e PositionChangedEvent) Type() EventType {
	return EventPositionChanged
}

// NewPositionChangedEvent creates a new PositionChangedEvent.
func NewPositionChangedEvent(position, duration time.Duration) PositionChangedEvent {
	return PositionChangedEvent{
		baseEvent: newBaseEvent(),
		Position:  position,
		Duration:  duration,
	}
}

// SessionConnectedEvent is published when the session channel is up and
// authenticated.
type SessionConnectedEvent struct {
	baseEvent
	Username string
}

// Type returns the event type.
func (e SessionConnectedEvent) Type() EventType {
	return EventSessionConnected
}

// NewSessionConnectedEvent creates a new SessionConnectedEvent.
func NewSessionConnectedEvent(username string) SessionConnectedEvent {
	return SessionConnectedEvent{baseEvent: newBaseEvent(), Username: username}
}

// SessionLostEvent is published when the session channel fails.
type SessionLostEvent struct {
	baseEvent
	Error error
}

// Type returns the event type.
func (e SessionLostEvent) Type() EventType {
	return EventSessionLost
}

// NewSessionLostEvent creates a new SessionLostEvent.
func NewSessionLostEvent(err error) SessionLostEvent {
	return SessionLostEvent{baseEvent: newBaseEvent(), Error: err}
}
