package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tair/movie-review/internal/review/domain"
	"github.com/tair/movie-review/pkg/database"
)

const newestFirst = "created_at DESC, id DESC"

// GormReviewRepository implements ReviewRepository using GORM
type GormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository creates a new GORM review repository
func NewGormReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

// Create inserts a review. The uk_user_content index makes this the
// authoritative uniqueness check.
func (r *GormReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(review).Error; err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return domain.ErrDuplicateReview
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// Update writes the mutable columns of a review
func (r *GormReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("id = ?", review.ID).
		Updates(map[string]interface{}{
			"rating":     review.Rating,
			"comment":    review.Comment,
			"updated_at": review.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrReviewNotFound
	}
	return nil
}

// Delete removes a review
func (r *GormReviewRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Review{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrReviewNotFound
	}
	return nil
}

// FindByID retrieves a review with its author
func (r *GormReviewRepository) FindByID(ctx context.Context, id uint) (*domain.Review, error) {
	var review domain.Review
	if err := r.db.WithContext(ctx).Preload("User").First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return &review, nil
}

// FindByUserAndContent retrieves the review a user wrote for a piece of content
func (r *GormReviewRepository) FindByUserAndContent(ctx context.Context, userID uint, key domain.ContentKey) (*domain.Review, error) {
	var review domain.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? AND external_content_id = ? AND content_type = ?", userID, key.ExternalContentID, key.ContentType).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return &review, nil
}

// ExistsByUserAndContent reports whether the user reviewed the content
func (r *GormReviewRepository) ExistsByUserAndContent(ctx context.Context, userID uint, key domain.ContentKey) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("user_id = ? AND external_content_id = ? AND content_type = ?", userID, key.ExternalContentID, key.ContentType).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check review existence: %w", err)
	}
	return count > 0, nil
}

// ListByContent retrieves all reviews of a piece of content
func (r *GormReviewRepository) ListByContent(ctx context.Context, key domain.ContentKey) ([]domain.Review, error) {
	var reviews []domain.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("external_content_id = ? AND content_type = ?", key.ExternalContentID, key.ContentType).
		Order(newestFirst).
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for content: %w", err)
	}
	return reviews, nil
}

// ListByUser retrieves all reviews written by a user
func (r *GormReviewRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Review, error) {
	var reviews []domain.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order(newestFirst).
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for user: %w", err)
	}
	return reviews, nil
}

// AutoMigrate runs database migrations
func (r *GormReviewRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Review{})
}
