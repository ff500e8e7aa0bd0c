package command

import (
	"context"

	"github.com/tair/movie-review/internal/review/domain"
	"github.com/tair/movie-review/kafka"
	"github.com/tair/movie-review/pkg/logger"
)

// publish sends a lifecycle event for r. The review is already committed, so
// a broker failure is logged and never surfaces to the caller.
func publish(ctx context.Context, events kafka.EventPublisher, eventType string, r *domain.Review, at domain.Clock) {
	ev := kafka.ReviewEvent{
		EventType:         eventType,
		ReviewID:          r.ID,
		Username:          r.User.Username,
		ExternalContentID: r.ExternalContentID,
		ContentType:       string(r.ContentType),
		Rating:            r.Rating,
		Timestamp:         at().UTC(),
	}
	if err := events.PublishReviewEvent(ctx, ev); err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("event_type", eventType).
			Uint("review_id", r.ID).
			Msg("Review event not published")
	}
}
