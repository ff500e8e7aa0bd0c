package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/movie-review/pkg/logger"
)

const (
	headerEventType = "event_type"
	headerEventID   = "event_id"
)

// Publisher sends review events to a single topic
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "review-service"
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Version = sarama.V2_8_0_0
	return cfg
}

// NewPublisher connects a synchronous producer to brokers
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	p := NewPublisherWithProducer(producer, topic)
	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("topic", p.topic).
		Msg("Review event publisher connected")
	return p, nil
}

// NewPublisherWithProducer creates a publisher on an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	if topic == "" {
		topic = TopicReviewEvents
	}
	return &Publisher{producer: producer, topic: topic, now: time.Now}
}

// headerCarrier lets the propagator write straight into record headers
type headerCarrier struct {
	headers *[]sarama.RecordHeader
}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	*c.headers = append(*c.headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, string(h.Key))
	}
	return keys
}

// message stamps the event and builds the record sent for it
func (p *Publisher) message(ctx context.Context, event *ReviewEvent) (*sarama.ProducerMessage, error) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.EventType, err)
	}

	headers := []sarama.RecordHeader{
		{Key: []byte(headerEventType), Value: []byte(event.EventType)},
		{Key: []byte(headerEventID), Value: []byte(event.EventID)},
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &headers})

	return &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.Key()),
		Value:     sarama.ByteEncoder(payload),
		Headers:   headers,
		Timestamp: event.Timestamp,
	}, nil
}

// PublishReviewEvent sends event keyed by its content, inside a producer span
func (p *Publisher) PublishReviewEvent(ctx context.Context, event ReviewEvent) error {
	ctx, span := otel.Tracer("review-events").Start(ctx, p.topic+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.topic),
			attribute.String("review.event_type", event.EventType),
			attribute.Int64("review.id", int64(event.ReviewID)),
		),
	)
	defer span.End()

	msg, err := p.message(ctx, &event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return err
	}
	span.SetAttributes(attribute.String("messaging.message.id", event.EventID))

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		logger.Error(ctx).
			Err(err).
			Str("topic", p.topic).
			Str("event_type", event.EventType).
			Uint("review_id", event.ReviewID).
			Msg("Failed to publish review event")
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.destination.partition", int(partition)),
		attribute.Int64("messaging.kafka.message.offset", offset),
	)

	logger.Debug(ctx).
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Review event published")
	return nil
}

// Close closes the underlying producer
func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
