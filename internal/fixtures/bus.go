package fixtures

import (
	"context"
	"sync"

	"github.com/abensaid/lendify/pkg/domain/events"
	"github.com/abensaid/lendify/pkg/eventbus"
)

// Bus records every emitted event and still dispatches to registered
// handlers, so tests can assert on both sides of the bus.
type Bus struct {
	mu       sync.Mutex
	emitted  []events.Event
	handlers map[string][]eventbus.HandlerFunc
}

// NewBus returns an empty recording bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]eventbus.HandlerFunc)}
}

func (b *Bus) Emit(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	b.emitted = append(b.emitted, event)
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[event.Type()]...)
	b.mu.Unlock()
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emitted returns every event emitted so far.
func (b *Bus) Emitted() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.emitted...)
}

// EmittedOfType returns the emitted events matching eventType.
func (b *Bus) EmittedOfType(eventType string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.emitted {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}
