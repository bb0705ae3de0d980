// Package events defines the domain events published on the event bus.
// Bus events are the integration surface toward asynchronous consumers
// (email delivery, external streams); the per-transfer audit trail is
// persisted separately and transactionally.
package events

// Event is the marker interface every bus event implements.
type Event interface {
	Type() string
}
