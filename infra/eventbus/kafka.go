//go:build kafka
// +build kafka

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/abensaid/lendify/pkg/domain/events"
	"github.com/abensaid/lendify/pkg/eventbus"
)

// KafkaEventBusConfig holds configuration for the Kafka event bus.
type KafkaEventBusConfig struct {
	GroupID     string
	TopicPrefix string
}

// DefaultKafkaEventBusConfig returns the default Kafka bus configuration.
func DefaultKafkaEventBusConfig() *KafkaEventBusConfig {
	return &KafkaEventBusConfig{
		GroupID:     "lendify",
		TopicPrefix: "lendify.events",
	}
}

// KafkaEventBus is a Kafka-backed event bus. Each event type maps to
// its own topic under the configured prefix; poisoned messages are
// republished to a per-type DLQ topic.
type KafkaEventBus struct {
	brokers []string
	writer  *kafka.Writer
	config  *KafkaEventBusConfig
	logger  *slog.Logger

	handlers    map[string][]eventbus.HandlerFunc
	handlersMtx sync.RWMutex

	readers    map[string]*kafka.Reader
	readersMtx sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)

// NewWithKafka creates a Kafka-backed event bus.
// brokers is a comma-separated list, e.g. "localhost:9092,localhost:9093".
func NewWithKafka(brokers string, logger *slog.Logger, config *KafkaEventBusConfig) (*KafkaEventBus, error) {
	parsed := parseBrokers(brokers)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if config == nil {
		config = DefaultKafkaEventBusConfig()
	}
	if config.GroupID == "" {
		config.GroupID = "lendify"
	}
	if strings.TrimSpace(config.TopicPrefix) == "" {
		config.TopicPrefix = "lendify.events"
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(parsed...),
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &KafkaEventBus{
		brokers:  parsed,
		writer:   writer,
		config:   config,
		logger:   logger.With("bus", "kafka"),
		handlers: make(map[string][]eventbus.HandlerFunc),
		readers:  make(map[string]*kafka.Reader),
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := bus.ping(ctx); err != nil {
		_ = bus.Close()
		return nil, err
	}
	return bus, nil
}

// Close stops consumer goroutines and closes network resources.
func (b *KafkaEventBus) Close() error {
	b.cancel()

	b.readersMtx.Lock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	b.readersMtx.Unlock()

	b.wg.Wait()
	return b.writer.Close()
}

// Register subscribes a handler and ensures a consumer for its topic.
func (b *KafkaEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.handlersMtx.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.handlersMtx.Unlock()

	b.ensureConsumer(eventType)
}

// Emit publishes the event to its topic.
func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka event bus: marshal failed: %w", err)
	}
	envBytes, err := json.Marshal(envelope{Type: event.Type(), Payload: data})
	if err != nil {
		return fmt.Errorf("kafka event bus: envelope marshal failed: %w", err)
	}

	msg := kafka.Message{
		Topic: b.topicFor(event.Type()),
		Key:   []byte(event.Type()),
		Value: envBytes,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka event bus: publish failed: %w", err)
	}
	return nil
}

func (b *KafkaEventBus) ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", b.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka event bus: connection failed: %w", err)
	}
	return conn.Close()
}

func (b *KafkaEventBus) ensureConsumer(eventType string) {
	b.readersMtx.Lock()
	defer b.readersMtx.Unlock()

	if _, exists := b.readers[eventType]; exists {
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.config.GroupID,
		Topic:       b.topicFor(eventType),
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
	})
	b.readers[eventType] = reader

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consumeLoop(b.ctx, eventType, reader)
	}()
}

func (b *KafkaEventBus) consumeLoop(ctx context.Context, eventType string, reader *kafka.Reader) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("kafka consume error", "error", err, "event_type", eventType)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		b.processMessage(ctx, msg)
		if err := reader.CommitMessages(ctx, msg); err != nil {
			b.logger.Error("kafka commit error", "error", err,
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		}
	}
}

func (b *KafkaEventBus) processMessage(ctx context.Context, msg kafka.Message) {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		b.logger.Error("failed to unmarshal envelope", "error", err, "topic", msg.Topic, "offset", msg.Offset)
		return
	}

	constructor, ok := events.Factories[env.Type]
	if !ok {
		b.logger.Error("unknown event type", "type", env.Type, "topic", msg.Topic)
		return
	}

	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		b.logger.Error("failed to unmarshal payload", "error", err, "event_type", env.Type)
		return
	}

	b.handlersMtx.RLock()
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[env.Type]...)
	b.handlersMtx.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, evt); err != nil {
			b.logger.Error("handler error", "error", err, "event_type", env.Type)
			b.publishToDLQ(ctx, env.Type, msg.Value)
		}
	}
}

func (b *KafkaEventBus) publishToDLQ(ctx context.Context, eventType string, raw []byte) {
	msg := kafka.Message{
		Topic: fmt.Sprintf("%s.dlq.%s", b.config.TopicPrefix, strings.ToLower(eventType)),
		Key:   []byte(eventType),
		Value: raw,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		b.logger.Error("kafka dlq publish failed", "error", err, "event_type", eventType)
		return
	}
	b.logger.Warn("message sent to DLQ", "event_type", eventType)
}

func (b *KafkaEventBus) topicFor(eventType string) string {
	return fmt.Sprintf("%s.%s", b.config.TopicPrefix, strings.ToLower(eventType))
}

func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
