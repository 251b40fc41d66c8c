package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/orders-service/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic     = "orders-outbox"
	defaultBatchSize = 100
)

// OutboxSource is the part of the order ledger the poller drains.
type OutboxSource interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error)
	MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller relays order events written in the ledger transaction to Kafka.
// Delivery is at least once: an event published but not marked is sent again.
type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	batchSize int
	repo      OutboxSource
	writer    MessageWriter
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(repo OutboxSource, writer MessageWriter) *OutboxPoller {
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: time.Second,
		batchSize: defaultBatchSize,
		repo:      repo,
		writer:    writer,
	}
}

// Run polls until ctx is done. The writer is closed on return.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	defer func() {
		if err := p.writer.Close(); err != nil {
			slog.Warn("failed to close outbox writer", "error", err)
		}
	}()

	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents publishes one batch and returns how many events were marked.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			slog.WarnContext(ctx, "failed to publish outbox event",
				"event_id", event.ID,
				"event_type", event.EventType,
				"error", err,
			)
			// later events for the same order must not overtake this one
			break
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			slog.WarnContext(ctx, "failed to mark outbox event as processed", "event_id", event.ID, "error", err)
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *domain.OrderEvent) error {
	msg := kafka.Message{
		// order id as key keeps each order's events on one partition, in order
		Key:   []byte(event.AggregateID.String()),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
		Time: event.CreatedAt,
	}
	return p.writer.WriteMessages(ctx, msg)
}
