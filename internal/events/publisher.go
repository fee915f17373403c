package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/exam-attempt-service/internal/config"
)

// EventPublisher publishes domain events to the message bus
type EventPublisher interface {
	Publish(ctx context.Context, eventType EventType, payload interface{}) error
	Close() error
}

type watermillPublisher struct {
	publisher   message.Publisher
	topicPrefix string
	logger      *slog.Logger
}

// NewEventPublisher publishes to Kafka when brokers are configured and to an
// in-process channel otherwise.
func NewEventPublisher(cfg config.KafkaConfig, logger *slog.Logger) (EventPublisher, error) {
	if !cfg.Enabled() {
		return NewInProcessPublisher(cfg.TopicPrefix, logger), nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &watermillPublisher{
		publisher:   publisher,
		topicPrefix: cfg.TopicPrefix,
		logger:      logger,
	}, nil
}

// NewInProcessPublisher returns a publisher backed by a watermill go channel.
func NewInProcessPublisher(topicPrefix string, logger *slog.Logger) EventPublisher {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	return &watermillPublisher{
		publisher:   pubSub,
		topicPrefix: topicPrefix,
		logger:      logger,
	}
}

// Topic returns the topic an event type is published on
func Topic(prefix string, eventType EventType) string {
	if prefix == "" {
		return string(eventType)
	}
	return prefix + "." + string(eventType)
}

func newEvent(eventType EventType, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

func (p *watermillPublisher) Publish(ctx context.Context, eventType EventType, payload interface{}) error {
	event := newEvent(eventType, payload)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}

	msg := message.NewMessage(event.ID, body)
	msg.Metadata.Set("event_type", string(eventType))
	msg.SetContext(ctx)

	topic := Topic(p.topicPrefix, eventType)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", eventType, err)
	}

	p.logger.Debug("Event published", "topic", topic, "event_id", event.ID)
	return nil
}

func (p *watermillPublisher) Close() error {
	return p.publisher.Close()
}
