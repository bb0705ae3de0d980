//go:build !kafka
// +build !kafka

package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abensaid/lendify/pkg/domain/events"
	"github.com/abensaid/lendify/pkg/eventbus"
)

// KafkaEventBusConfig holds configuration for the Kafka event bus.
type KafkaEventBusConfig struct {
	GroupID     string
	TopicPrefix string
}

// KafkaEventBus is unavailable without the kafka build tag.
type KafkaEventBus struct{}

var _ eventbus.Bus = (*KafkaEventBus)(nil)

func NewWithKafka(brokers string, logger *slog.Logger, config *KafkaEventBusConfig) (*KafkaEventBus, error) {
	return nil, fmt.Errorf("kafka event bus: build with -tags kafka to enable")
}

func (b *KafkaEventBus) Register(eventType string, handler eventbus.HandlerFunc) {}

func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	return fmt.Errorf("kafka event bus: build with -tags kafka to enable")
}
