// Package eventbus defines the contract for publishing and subscribing
// to domain events. Implementations live under infra/eventbus: an
// in-memory bus for tests and single-process deployments, a Redis
// Streams bus, and a Kafka bus behind the `kafka` build tag.
package eventbus

import (
	"context"

	"github.com/abensaid/lendify/pkg/domain/events"
)

// HandlerFunc consumes one event. Handler errors are logged by the bus,
// never propagated to the publisher.
type HandlerFunc func(ctx context.Context, event events.Event) error

// Bus publishes domain events to registered handlers.
type Bus interface {
	// Emit dispatches the event to every handler registered for its type.
	Emit(ctx context.Context, event events.Event) error

	// Register subscribes a handler to an event type.
	Register(eventType string, handler HandlerFunc)
}
