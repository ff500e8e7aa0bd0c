package query

import (
	"context"

	"github.com/tair/movie-review/internal/review/domain"
)

// GetReviewQuery represents the query to get a review by ID
type GetReviewQuery struct {
	ReviewID uint
}

// GetReviewHandler handles get review query
type GetReviewHandler struct {
	repo domain.ReviewRepository
}

// NewGetReviewHandler creates a new get review handler
func NewGetReviewHandler(repo domain.ReviewRepository) *GetReviewHandler {
	return &GetReviewHandler{repo: repo}
}

// Handle executes the get review query
func (h *GetReviewHandler) Handle(ctx context.Context, q GetReviewQuery) (*domain.ReviewResponse, error) {
	review, err := h.repo.FindByID(ctx, q.ReviewID)
	if err != nil {
		return nil, err
	}
	resp := review.ToResponse()
	return &resp, nil
}
