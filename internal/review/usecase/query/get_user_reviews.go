package query

import (
	"context"
	"errors"

	"github.com/tair/movie-review/internal/review/domain"
	userdomain "github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/pkg/auth"
)

// GetUserReviewsQuery lists the reviews written by Username
type GetUserReviewsQuery struct {
	Username string
}

// GetUserReviewsHandler lists reviews by author
type GetUserReviewsHandler struct {
	repo  domain.ReviewRepository
	users domain.UserLookup
}

// NewGetUserReviewsHandler creates a new get user reviews handler
func NewGetUserReviewsHandler(repo domain.ReviewRepository, users domain.UserLookup) *GetUserReviewsHandler {
	return &GetUserReviewsHandler{repo: repo, users: users}
}

// Handle returns the reviews newest first, or ErrUserNotFound
func (h *GetUserReviewsHandler) Handle(ctx context.Context, q GetUserReviewsQuery) ([]domain.ReviewResponse, error) {
	user, err := h.users.FindByUsername(ctx, q.Username)
	if err != nil {
		return nil, err
	}
	reviews, err := h.repo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return domain.ToResponses(reviews), nil
}

// GetMyReviewsQuery lists the caller's own reviews
type GetMyReviewsQuery struct {
	Caller auth.Identity
}

// GetMyReviewsHandler lists the authenticated user's reviews
type GetMyReviewsHandler struct {
	repo  domain.ReviewRepository
	users domain.UserLookup
}

// NewGetMyReviewsHandler creates a new get my reviews handler
func NewGetMyReviewsHandler(repo domain.ReviewRepository, users domain.UserLookup) *GetMyReviewsHandler {
	return &GetMyReviewsHandler{repo: repo, users: users}
}

// Handle returns an empty list when the caller's account no longer exists
func (h *GetMyReviewsHandler) Handle(ctx context.Context, q GetMyReviewsQuery) ([]domain.ReviewResponse, error) {
	user, err := h.users.FindByUsername(ctx, q.Caller.Username)
	if errors.Is(err, userdomain.ErrUserNotFound) {
		return []domain.ReviewResponse{}, nil
	}
	if err != nil {
		return nil, err
	}
	reviews, err := h.repo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return domain.ToResponses(reviews), nil
}
