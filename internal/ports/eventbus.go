// Package ports define the EventBus interface for event-driven communication.
// Background workers surface their outcomes as events consumed by the
// control loop and front-ends, rather than sharing mutable state.
package ports

import (
	"github.com/isaaclins/psst/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
//
// The event bus decouples event producers (the player, the session) from
// event consumers (CLI, GUI, logging). Multiple subscribers can listen to
// the same event, and subscribers don't know about publishers.
//
// Thread-safety: Implementations must be thread-safe as events may be
// published and subscribed from multiple goroutines simultaneously.
//
// Example usage:
//
//	// In the player: publish an event
//	bus.Publish(domain.NewPlaybackStartedEvent(item))
//
//	// In a front-end: subscribe to events
//	subID := bus.Subscribe(domain.EventPlaybackStarted, func(event domain.Event) {
//	    e := event.(domain.PlaybackStartedEvent)
//	    render(e.Item)
//	})
//
//	// Later: unsubscribe
//	bus.Unsubscribe(subID)
type EventBus interface {
	// Publish publishes an event to all subscribers of that event type.
	//
	// This method must not block for long periods. Handlers should
	// process events quickly or dispatch to a background goroutine if
	// long processing is needed.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	// The same handler can be registered multiple times, resulting in
	// multiple calls. Each subscription gets a unique SubscriptionID.
	//
	// Returns a SubscriptionID that can be used to unsubscribe later.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered event handler.
	// If the subscription ID is invalid or already unsubscribed, this is
	// a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives all events
	// regardless of type. Useful for logging and debugging.
	//
	// Returns a SubscriptionID that can be used to unsubscribe later.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers returns true if there are any active subscriptions
	// for the given event type. This can be used to avoid expensive
	// event construction if no one is listening.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the event bus and cleans up resources.
	// After calling Close, no more events should be published or
	// subscribed.
	Close() error
}
