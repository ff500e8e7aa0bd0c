package command

import (
	"context"
	"errors"

	"github.com/tair/movie-review/internal/review/domain"
	"github.com/tair/movie-review/kafka"
	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/validation"
)

// CreateReviewCommand represents the command to review a piece of content
type CreateReviewCommand struct {
	Caller            auth.Identity `json:"-" validate:"-"`
	ExternalContentID string        `json:"externalContentId"`
	ContentType       string        `json:"contentType"`
	Rating            int           `json:"rating" validate:"min=1,max=5"`
	Comment           string        `json:"comment" validate:"max=1000"`
}

// CreateReviewHandler handles review creation
type CreateReviewHandler struct {
	repo     domain.ReviewRepository
	users    domain.UserLookup
	validate *validation.Validator
	events   kafka.EventPublisher
	now      domain.Clock
}

// NewCreateReviewHandler creates a new create review handler
func NewCreateReviewHandler(
	repo domain.ReviewRepository,
	users domain.UserLookup,
	v *validation.Validator,
	events kafka.EventPublisher,
	now domain.Clock,
) *CreateReviewHandler {
	return &CreateReviewHandler{repo: repo, users: users, validate: v, events: events, now: now}
}

// Handle executes the create review command
func (h *CreateReviewHandler) Handle(ctx context.Context, cmd CreateReviewCommand) (*domain.ReviewResponse, error) {
	key, err := domain.NewContentKey(cmd.ExternalContentID, cmd.ContentType)
	if err != nil {
		return nil, err
	}
	if err := h.validate.Struct(ctx, cmd); err != nil {
		return nil, err
	}

	user, err := h.users.FindByUsername(ctx, cmd.Caller.Username)
	if err != nil {
		return nil, err
	}

	if err := h.ensureFirstReview(ctx, user.ID, key); err != nil {
		return nil, err
	}

	now := h.now()
	review := &domain.Review{
		UserID:            user.ID,
		User:              *user,
		ExternalContentID: key.ExternalContentID,
		ContentType:       key.ContentType,
		Rating:            cmd.Rating,
		Comment:           cmd.Comment,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// Two concurrent creates can both pass the check above; the unique
	// index lets one through and the other gets ErrDuplicateReview.
	if err := h.repo.Create(ctx, review); err != nil {
		if errors.Is(err, domain.ErrDuplicateReview) {
			if existing, findErr := h.repo.FindByUserAndContent(ctx, user.ID, key); findErr == nil {
				return nil, domain.DuplicateReviewError(existing.ID)
			}
		}
		return nil, err
	}

	publish(ctx, h.events, kafka.EventTypeReviewCreated, review, h.now)

	resp := review.ToResponse()
	return &resp, nil
}

// ensureFirstReview fails with the id of the caller's existing review of key
func (h *CreateReviewHandler) ensureFirstReview(ctx context.Context, userID uint, key domain.ContentKey) error {
	existing, err := h.repo.FindByUserAndContent(ctx, userID, key)
	switch {
	case err == nil:
		return domain.DuplicateReviewError(existing.ID)
	case errors.Is(err, domain.ErrReviewNotFound):
		return nil
	default:
		return err
	}
}
