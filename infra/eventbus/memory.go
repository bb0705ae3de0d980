// Package eventbus holds the Bus implementations: a synchronous
// in-memory bus for single-process deployments, a Redis Streams bus,
// and a Kafka bus available behind the `kafka` build tag.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/abensaid/lendify/pkg/domain/events"
	"github.com/abensaid/lendify/pkg/eventbus"
)

// MemoryEventBus dispatches events synchronously to in-process
// handlers. Handler errors and panics are logged, never surfaced to
// the publisher.
type MemoryEventBus struct {
	handlers map[string][]eventbus.HandlerFunc
	mu       sync.RWMutex
	logger   *slog.Logger
}

var _ eventbus.Bus = (*MemoryEventBus)(nil)

// NewWithMemory creates an in-memory event bus.
func NewWithMemory(logger *slog.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		handlers: make(map[string][]eventbus.HandlerFunc),
		logger:   logger.With("bus", "memory"),
	}
}

// Register subscribes a handler to an event type.
func (b *MemoryEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit dispatches the event to every handler registered for its type.
func (b *MemoryEventBus) Emit(ctx context.Context, event events.Event) error {
	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[event.Type()]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("panic recovered in event handler",
						"type", event.Type(), "panic", r)
				}
			}()
			if err := handler(ctx, event); err != nil {
				b.logger.Error("event handler failed",
					"type", event.Type(), "error", err)
			}
		}()
	}
	return nil
}
