package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(msg *sarama.ProducerMessage, key string) string {
	for _, h := range msg.Headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublishReviewEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, TopicReviewEvents, msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "MOVIE:550", string(key))
		assert.Equal(t, EventTypeReviewCreated, header(msg, "event_type"))
		assert.NotEmpty(t, header(msg, "event_id"))

		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var ev ReviewEvent
		require.NoError(t, json.Unmarshal(value, &ev))
		assert.Equal(t, uint(7), ev.ReviewID)
		assert.Equal(t, "alice", ev.Username)
		assert.Equal(t, 5, ev.Rating)
		assert.Equal(t, header(msg, "event_id"), ev.EventID)
		assert.False(t, ev.Timestamp.IsZero())
		return nil
	})

	p := NewPublisherWithProducer(producer, "")
	err := p.PublishReviewEvent(context.Background(), ReviewEvent{
		EventType:         EventTypeReviewCreated,
		ReviewID:          7,
		Username:          "alice",
		ExternalContentID: "550",
		ContentType:       "MOVIE",
		Rating:            5,
	})
	assert.NoError(t, err)
}

func TestPublishReviewEventFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	brokerDown := errors.New("broker down")
	producer.ExpectSendMessageAndFail(brokerDown)

	p := NewPublisherWithProducer(producer, "custom-topic")
	err := p.PublishReviewEvent(context.Background(), ReviewEvent{EventType: EventTypeReviewDeleted, ReviewID: 1})
	assert.ErrorIs(t, err, brokerDown)
}

func TestNopPublisher(t *testing.T) {
	var p EventPublisher = NopPublisher{}
	assert.NoError(t, p.PublishReviewEvent(context.Background(), ReviewEvent{}))
}

func TestHeaderCarrier(t *testing.T) {
	var headers []sarama.RecordHeader
	c := headerCarrier{headers: &headers}
	c.Set("traceparent", "00-abc-def-01")

	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Empty(t, c.Get("missing"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
	assert.Len(t, headers, 1)
}

func TestProducerConfigIsIdempotent(t *testing.T) {
	cfg := producerConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Producer.Idempotent)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
}
