package command

import (
	"context"
	"errors"

	"github.com/tair/movie-review/internal/review/domain"
	userdomain "github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/kafka"
	"github.com/tair/movie-review/pkg/auth"
)

// DeleteReviewCommand represents the command to delete a review
type DeleteReviewCommand struct {
	Caller   auth.Identity
	ReviewID uint
}

// DeleteReviewHandler handles review deletion by the author or an ADMIN
type DeleteReviewHandler struct {
	repo   domain.ReviewRepository
	users  domain.UserLookup
	events kafka.EventPublisher
	now    domain.Clock
}

// NewDeleteReviewHandler creates a new delete review handler
func NewDeleteReviewHandler(
	repo domain.ReviewRepository,
	users domain.UserLookup,
	events kafka.EventPublisher,
	now domain.Clock,
) *DeleteReviewHandler {
	return &DeleteReviewHandler{repo: repo, users: users, events: events, now: now}
}

// Handle executes the delete review command
func (h *DeleteReviewHandler) Handle(ctx context.Context, cmd DeleteReviewCommand) error {
	review, err := h.repo.FindByID(ctx, cmd.ReviewID)
	if err != nil {
		return err
	}

	user, err := h.users.FindByUsername(ctx, cmd.Caller.Username)
	switch {
	case errors.Is(err, userdomain.ErrUserNotFound) && cmd.Caller.IsAdmin():
		user = nil
	case err != nil:
		return err
	}
	if !review.CanDelete(user, cmd.Caller) {
		return domain.ErrNotOwner
	}

	if err := h.repo.Delete(ctx, review.ID); err != nil {
		return err
	}

	publish(ctx, h.events, kafka.EventTypeReviewDeleted, review, h.now)
	return nil
}
