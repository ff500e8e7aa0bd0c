package repository

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/pkg/auth"
)

// TracingUserRepository wraps a UserRepository with OpenTelemetry spans
type TracingUserRepository struct {
	next   domain.UserRepository
	tracer trace.Tracer
}

// NewTracingUserRepository creates a new repository with tracing
func NewTracingUserRepository(next domain.UserRepository) *TracingUserRepository {
	return &TracingUserRepository{
		next:   next,
		tracer: otel.Tracer("user-repository"),
	}
}

// Create with tracing
func (r *TracingUserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, span := r.tracer.Start(ctx, "repository.User.Create",
		trace.WithAttributes(attribute.String("user.username", user.Username)),
	)
	defer span.End()

	err := r.next.Create(ctx, user)
	if err != nil {
		recordError(span, err)
		return err
	}

	span.SetAttributes(attribute.Int("user.id", int(user.ID)))
	return nil
}

// FindByUsername with tracing
func (r *TracingUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "repository.User.FindByUsername",
		trace.WithAttributes(attribute.String("user.username", username)),
	)
	defer span.End()

	user, err := r.next.FindByUsername(ctx, username)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("user.id", int(user.ID)))
	return user, nil
}

// ExistsByUsername with tracing
func (r *TracingUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "repository.User.ExistsByUsername")
	defer span.End()

	ok, err := r.next.ExistsByUsername(ctx, username)
	recordError(span, err)
	return ok, err
}

// ExistsByEmail with tracing
func (r *TracingUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "repository.User.ExistsByEmail")
	defer span.End()

	ok, err := r.next.ExistsByEmail(ctx, email)
	recordError(span, err)
	return ok, err
}

// CountByRole with tracing
func (r *TracingUserRepository) CountByRole(ctx context.Context) (map[auth.Role]int64, error) {
	ctx, span := r.tracer.Start(ctx, "repository.User.CountByRole")
	defer span.End()

	counts, err := r.next.CountByRole(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.roles", len(counts)))
	return counts, nil
}

// recordError marks the span failed. A missing user is an expected outcome
// and only gets an attribute.
func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrUserNotFound) {
		span.SetAttributes(attribute.Bool("user.found", false))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
