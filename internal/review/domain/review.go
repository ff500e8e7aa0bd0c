package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	userdomain "github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/pkg/apperror"
	"github.com/tair/movie-review/pkg/auth"
)

// Validation bounds
const (
	MinRating               = 1
	MaxRating               = 5
	MaxCommentLength        = 1000
	MaxExternalContentIDLen = 100
)

var (
	ErrReviewNotFound  = apperror.New(apperror.KindNotFound, "review not found")
	ErrDuplicateReview = apperror.New(apperror.KindDuplicate, "you have already reviewed this content; edit or delete your existing review")
	ErrNotOwner        = apperror.New(apperror.KindForbidden, "you do not have permission to modify this review")
	ErrInvalidContent  = apperror.Validation("contentType must be MOVIE or SERIES")
)

// DuplicateReviewError names the review the caller already wrote. It
// matches ErrDuplicateReview under errors.Is.
func DuplicateReviewError(existingID uint) error {
	return apperror.Wrap(apperror.KindDuplicate,
		fmt.Sprintf("you have already reviewed this content (review %d); edit or delete your existing review", existingID),
		ErrDuplicateReview)
}

// ContentType is the closed set of reviewable content kinds
type ContentType string

const (
	ContentTypeMovie  ContentType = "MOVIE"
	ContentTypeSeries ContentType = "SERIES"
)

// ParseContentType accepts MOVIE or SERIES in any case
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToUpper(strings.TrimSpace(s))) {
	case ContentTypeMovie:
		return ContentTypeMovie, nil
	case ContentTypeSeries:
		return ContentTypeSeries, nil
	default:
		return "", ErrInvalidContent
	}
}

// ContentKey identifies a piece of external content
type ContentKey struct {
	ExternalContentID string
	ContentType       ContentType
}

// NewContentKey validates and normalises a content reference
func NewContentKey(externalContentID, contentType string) (ContentKey, error) {
	id := strings.TrimSpace(externalContentID)
	if id == "" {
		return ContentKey{}, apperror.Validation("externalContentId is required")
	}
	if utf8.RuneCountInString(id) > MaxExternalContentIDLen {
		return ContentKey{}, apperror.Validation(fmt.Sprintf("externalContentId must be at most %d characters", MaxExternalContentIDLen))
	}
	ct, err := ParseContentType(contentType)
	if err != nil {
		return ContentKey{}, err
	}
	return ContentKey{ExternalContentID: id, ContentType: ct}, nil
}

// String renders the key used for partitioning events
func (k ContentKey) String() string {
	return string(k.ContentType) + ":" + k.ExternalContentID
}

// Review represents a user's rating of one piece of content.
// Timestamps are set by the use cases, not by GORM.
type Review struct {
	ID                uint            `gorm:"primaryKey"`
	UserID            uint            `gorm:"not null;uniqueIndex:uk_user_content,priority:1;index:idx_reviews_user"`
	User              userdomain.User `gorm:"constraint:OnDelete:CASCADE"`
	ExternalContentID string          `gorm:"size:100;not null;uniqueIndex:uk_user_content,priority:2;index:idx_reviews_content,priority:1"`
	ContentType       ContentType     `gorm:"type:varchar(20);not null;uniqueIndex:uk_user_content,priority:3;index:idx_reviews_content,priority:2"`
	Rating            int             `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5"`
	Comment           string          `gorm:"size:1000"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime:false"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime:false"`
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}

// Key returns the content the review is about
func (r *Review) Key() ContentKey {
	return ContentKey{ExternalContentID: r.ExternalContentID, ContentType: r.ContentType}
}

// IsOwnedBy reports whether user wrote the review
func (r *Review) IsOwnedBy(user *userdomain.User) bool {
	return user != nil && r.UserID == user.ID
}

// CanDelete reports whether the caller may delete the review: the owner or an ADMIN
func (r *Review) CanDelete(user *userdomain.User, id auth.Identity) bool {
	return r.IsOwnedBy(user) || id.IsAdmin()
}

// Touch advances UpdatedAt to now, or one stored tick past its previous
// value when the clock has not moved, so every update is observable.
func (r *Review) Touch(now time.Time) {
	now = now.Truncate(TimestampPrecision)
	prev := r.UpdatedAt.Truncate(TimestampPrecision)
	if !now.After(prev) {
		now = prev.Add(TimestampPrecision)
	}
	r.UpdatedAt = now
}

// ReviewResponse is the public projection of a review
type ReviewResponse struct {
	ID                uint        `json:"id"`
	Username          string      `json:"username"`
	ExternalContentID string      `json:"externalContentId"`
	ContentType       ContentType `json:"contentType"`
	Rating            int         `json:"rating"`
	Comment           string      `json:"comment"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// ToResponse projects the review. The User association must be loaded.
func (r *Review) ToResponse() ReviewResponse {
	return ReviewResponse{
		ID:                r.ID,
		Username:          r.User.Username,
		ExternalContentID: r.ExternalContentID,
		ContentType:       r.ContentType,
		Rating:            r.Rating,
		Comment:           r.Comment,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// ToResponses projects a list of reviews, preserving order
func ToResponses(reviews []Review) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, reviews[i].ToResponse())
	}
	return out
}

// ContentReviewSummary aggregates the reviews of one piece of content
type ContentReviewSummary struct {
	ExternalContentID string           `json:"externalContentId"`
	ContentType       ContentType      `json:"contentType"`
	TotalReviews      int64            `json:"totalReviews"`
	AverageRating     float64          `json:"averageRating"`
	Reviews           []ReviewResponse `json:"reviews"`
}

// Summarize builds the summary of reviews for key. The average is the
// arithmetic mean of the ratings and 0.0 when there are none.
func Summarize(key ContentKey, reviews []Review) ContentReviewSummary {
	summary := ContentReviewSummary{
		ExternalContentID: key.ExternalContentID,
		ContentType:       key.ContentType,
		TotalReviews:      int64(len(reviews)),
		Reviews:           ToResponses(reviews),
	}
	if len(reviews) == 0 {
		return summary
	}

	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	summary.AverageRating = float64(total) / float64(len(reviews))
	return summary
}

// ReviewRepository defines the contract for review data access.
// List methods return reviews most recent first with the User loaded.
// Create returns ErrDuplicateReview when the (user, content) pair exists.
type ReviewRepository interface {
	Create(ctx context.Context, review *Review) error
	Update(ctx context.Context, review *Review) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*Review, error)
	FindByUserAndContent(ctx context.Context, userID uint, key ContentKey) (*Review, error)
	ExistsByUserAndContent(ctx context.Context, userID uint, key ContentKey) (bool, error)
	ListByContent(ctx context.Context, key ContentKey) ([]Review, error)
	ListByUser(ctx context.Context, userID uint) ([]Review, error)
}

// Clock returns the current time
type Clock func() time.Time

// TimestampPrecision is the resolution of the timestamp columns
const TimestampPrecision = time.Microsecond

// SystemClock is the wall clock in UTC at the precision the database keeps,
// so times returned by a write match a later read.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(TimestampPrecision)
}

// UserLookup resolves the authenticated username to a stored user
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*userdomain.User, error)
}
