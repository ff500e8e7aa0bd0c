package query

import (
	"context"
	"errors"

	"github.com/tair/movie-review/internal/review/domain"
	userdomain "github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/pkg/auth"
)

// HasReviewedQuery asks whether the caller reviewed a piece of content
type HasReviewedQuery struct {
	Caller            auth.Identity
	ExternalContentID string
	ContentType       string
}

// HasReviewedHandler answers HasReviewedQuery
type HasReviewedHandler struct {
	repo  domain.ReviewRepository
	users domain.UserLookup
}

// NewHasReviewedHandler creates a new has reviewed handler
func NewHasReviewedHandler(repo domain.ReviewRepository, users domain.UserLookup) *HasReviewedHandler {
	return &HasReviewedHandler{repo: repo, users: users}
}

// Handle reports false for callers without a stored account
func (h *HasReviewedHandler) Handle(ctx context.Context, q HasReviewedQuery) (bool, error) {
	key, err := domain.NewContentKey(q.ExternalContentID, q.ContentType)
	if err != nil {
		return false, err
	}

	user, err := h.users.FindByUsername(ctx, q.Caller.Username)
	if errors.Is(err, userdomain.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return h.repo.ExistsByUserAndContent(ctx, user.ID, key)
}
