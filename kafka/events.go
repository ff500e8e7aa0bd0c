package kafka

import (
	"context"
	"time"
)

// ReviewEvent represents a change in the review lifecycle
type ReviewEvent struct {
	EventID           string    `json:"event_id"`
	EventType         string    `json:"event_type"`
	ReviewID          uint      `json:"review_id"`
	Username          string    `json:"username"`
	ExternalContentID string    `json:"external_content_id"`
	ContentType       string    `json:"content_type"`
	Rating            int       `json:"rating,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Key partitions events by content so that all events of one title stay ordered
func (e ReviewEvent) Key() string {
	return e.ContentType + ":" + e.ExternalContentID
}

// Event types
const (
	EventTypeReviewCreated = "review.created"
	EventTypeReviewUpdated = "review.updated"
	EventTypeReviewDeleted = "review.deleted"
)

// Kafka topics
const (
	TopicReviewEvents = "review-events"
)

// EventPublisher publishes review events
type EventPublisher interface {
	PublishReviewEvent(ctx context.Context, event ReviewEvent) error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

// PublishReviewEvent does nothing
func (NopPublisher) PublishReviewEvent(context.Context, ReviewEvent) error {
	return nil
}
