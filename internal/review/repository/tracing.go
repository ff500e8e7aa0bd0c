package repository

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/movie-review/internal/review/domain"
)

// TracingReviewRepository wraps a ReviewRepository with OpenTelemetry spans
type TracingReviewRepository struct {
	next   domain.ReviewRepository
	tracer trace.Tracer
}

// NewTracingReviewRepository creates a new repository with tracing
func NewTracingReviewRepository(next domain.ReviewRepository) *TracingReviewRepository {
	return &TracingReviewRepository{
		next:   next,
		tracer: otel.Tracer("review-repository"),
	}
}

func contentAttrs(key domain.ContentKey) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("content.external_id", key.ExternalContentID),
		attribute.String("content.type", string(key.ContentType)),
	}
}

// Create with tracing
func (r *TracingReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	ctx, span := r.tracer.Start(ctx, "repository.Review.Create",
		trace.WithAttributes(contentAttrs(review.Key())...),
		trace.WithAttributes(attribute.Int("user.id", int(review.UserID))),
	)
	defer span.End()

	if err := r.next.Create(ctx, review); err != nil {
		recordError(span, err)
		return err
	}

	span.SetAttributes(attribute.Int("review.id", int(review.ID)))
	return nil
}

// Update with tracing
func (r *TracingReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	ctx, span := r.tracer.Start(ctx, "repository.Review.Update",
		trace.WithAttributes(attribute.Int("review.id", int(review.ID))),
	)
	defer span.End()

	err := r.next.Update(ctx, review)
	recordError(span, err)
	return err
}

// Delete with tracing
func (r *TracingReviewRepository) Delete(ctx context.Context, id uint) error {
	ctx, span := r.tracer.Start(ctx, "repository.Review.Delete",
		trace.WithAttributes(attribute.Int("review.id", int(id))),
	)
	defer span.End()

	err := r.next.Delete(ctx, id)
	recordError(span, err)
	return err
}

// FindByID with tracing
func (r *TracingReviewRepository) FindByID(ctx context.Context, id uint) (*domain.Review, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Review.FindByID",
		trace.WithAttributes(attribute.Int("review.id", int(id))),
	)
	defer span.End()

	review, err := r.next.FindByID(ctx, id)
	recordError(span, err)
	return review, err
}

// FindByUserAndContent with tracing
func (r *TracingReviewRepository) FindByUserAndContent(ctx context.Context, userID uint, key domain.ContentKey) (*domain.Review, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Review.FindByUserAndContent",
		trace.WithAttributes(contentAttrs(key)...),
		trace.WithAttributes(attribute.Int("user.id", int(userID))),
	)
	defer span.End()

	review, err := r.next.FindByUserAndContent(ctx, userID, key)
	recordError(span, err)
	return review, err
}

// ExistsByUserAndContent with tracing
func (r *TracingReviewRepository) ExistsByUserAndContent(ctx context.Context, userID uint, key domain.ContentKey) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Review.ExistsByUserAndContent",
		trace.WithAttributes(contentAttrs(key)...),
		trace.WithAttributes(attribute.Int("user.id", int(userID))),
	)
	defer span.End()

	ok, err := r.next.ExistsByUserAndContent(ctx, userID, key)
	recordError(span, err)
	span.SetAttributes(attribute.Bool("result.exists", ok))
	return ok, err
}

// ListByContent with tracing
func (r *TracingReviewRepository) ListByContent(ctx context.Context, key domain.ContentKey) ([]domain.Review, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Review.ListByContent",
		trace.WithAttributes(contentAttrs(key)...),
	)
	defer span.End()

	reviews, err := r.next.ListByContent(ctx, key)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(reviews)))
	return reviews, nil
}

// ListByUser with tracing
func (r *TracingReviewRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Review, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Review.ListByUser",
		trace.WithAttributes(attribute.Int("user.id", int(userID))),
	)
	defer span.End()

	reviews, err := r.next.ListByUser(ctx, userID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(reviews)))
	return reviews, nil
}

// recordError marks the span failed. Missing and duplicate reviews are
// expected outcomes and only get an attribute.
func recordError(span trace.Span, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrReviewNotFound):
		span.SetAttributes(attribute.Bool("review.found", false))
	case errors.Is(err, domain.ErrDuplicateReview):
		span.SetAttributes(attribute.Bool("review.duplicate", true))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
