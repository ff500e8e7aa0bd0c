package query

import (
	"context"

	"github.com/tair/movie-review/internal/review/domain"
)

// GetContentReviewsQuery selects the reviews of one piece of content
type GetContentReviewsQuery struct {
	ExternalContentID string
	ContentType       string
}

// GetContentReviewsHandler builds the review summary of a piece of content
type GetContentReviewsHandler struct {
	repo domain.ReviewRepository
}

// NewGetContentReviewsHandler creates a new get content reviews handler
func NewGetContentReviewsHandler(repo domain.ReviewRepository) *GetContentReviewsHandler {
	return &GetContentReviewsHandler{repo: repo}
}

// Handle executes the query. Unknown content yields an empty summary.
func (h *GetContentReviewsHandler) Handle(ctx context.Context, q GetContentReviewsQuery) (*domain.ContentReviewSummary, error) {
	key, err := domain.NewContentKey(q.ExternalContentID, q.ContentType)
	if err != nil {
		return nil, err
	}

	reviews, err := h.repo.ListByContent(ctx, key)
	if err != nil {
		return nil, err
	}

	summary := domain.Summarize(key, reviews)
	return &summary, nil
}
