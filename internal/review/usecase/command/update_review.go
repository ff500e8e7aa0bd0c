package command

import (
	"context"

	"github.com/tair/movie-review/internal/review/domain"
	"github.com/tair/movie-review/kafka"
	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/validation"
)

// UpdateReviewCommand changes the rating and/or comment of a review.
// Nil fields are left untouched.
type UpdateReviewCommand struct {
	Caller   auth.Identity `json:"-"`
	ReviewID uint          `json:"-"`
	Rating   *int          `json:"rating,omitempty"`
	Comment  *string       `json:"comment,omitempty"`
}

// UpdateReviewHandler handles review updates. Only the author may update.
type UpdateReviewHandler struct {
	repo     domain.ReviewRepository
	users    domain.UserLookup
	validate *validation.Validator
	events   kafka.EventPublisher
	now      domain.Clock
}

// NewUpdateReviewHandler creates a new update review handler
func NewUpdateReviewHandler(
	repo domain.ReviewRepository,
	users domain.UserLookup,
	v *validation.Validator,
	events kafka.EventPublisher,
	now domain.Clock,
) *UpdateReviewHandler {
	return &UpdateReviewHandler{repo: repo, users: users, validate: v, events: events, now: now}
}

// Handle executes the update review command
func (h *UpdateReviewHandler) Handle(ctx context.Context, cmd UpdateReviewCommand) (*domain.ReviewResponse, error) {
	if cmd.Rating != nil {
		if err := h.validate.Var(ctx, "rating", *cmd.Rating, "min=1,max=5"); err != nil {
			return nil, err
		}
	}
	if cmd.Comment != nil {
		if err := h.validate.Var(ctx, "comment", *cmd.Comment, "max=1000"); err != nil {
			return nil, err
		}
	}

	review, err := h.repo.FindByID(ctx, cmd.ReviewID)
	if err != nil {
		return nil, err
	}

	user, err := h.users.FindByUsername(ctx, cmd.Caller.Username)
	if err != nil {
		return nil, err
	}
	if !review.IsOwnedBy(user) {
		return nil, domain.ErrNotOwner
	}

	if cmd.Rating != nil {
		review.Rating = *cmd.Rating
	}
	if cmd.Comment != nil {
		review.Comment = *cmd.Comment
	}
	review.Touch(h.now())

	if err := h.repo.Update(ctx, review); err != nil {
		return nil, err
	}
	review.User = *user

	publish(ctx, h.events, kafka.EventTypeReviewUpdated, review, h.now)

	resp := review.ToResponse()
	return &resp, nil
}
