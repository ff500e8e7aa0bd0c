package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/tair/movie-review/internal/review/domain"
)

type uniqueKey struct {
	userID uint
	key    domain.ContentKey
}

// MemoryReviewRepository is an in-process ReviewRepository. It enforces the
// (user, content) uniqueness rule under its lock, like uk_user_content does.
type MemoryReviewRepository struct {
	mu       sync.RWMutex
	nextID   uint
	reviews  map[uint]domain.Review
	byUnique map[uniqueKey]uint
}

// NewMemoryReviewRepository creates an empty repository
func NewMemoryReviewRepository() *MemoryReviewRepository {
	return &MemoryReviewRepository{
		nextID:   1,
		reviews:  make(map[uint]domain.Review),
		byUnique: make(map[uniqueKey]uint),
	}
}

// Create stores the review and assigns its ID. The User association is kept
// as given for projections.
func (r *MemoryReviewRepository) Create(_ context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	uk := uniqueKey{userID: review.UserID, key: review.Key()}
	if _, ok := r.byUnique[uk]; ok {
		return domain.ErrDuplicateReview
	}

	review.ID = r.nextID
	r.nextID++
	r.reviews[review.ID] = *review
	r.byUnique[uk] = review.ID
	return nil
}

// Update writes the mutable fields of a review
func (r *MemoryReviewRepository) Update(_ context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reviews[review.ID]
	if !ok {
		return domain.ErrReviewNotFound
	}
	stored.Rating = review.Rating
	stored.Comment = review.Comment
	stored.UpdatedAt = review.UpdatedAt
	r.reviews[review.ID] = stored
	return nil
}

// Delete removes a review
func (r *MemoryReviewRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reviews[id]
	if !ok {
		return domain.ErrReviewNotFound
	}
	delete(r.reviews, id)
	delete(r.byUnique, uniqueKey{userID: stored.UserID, key: stored.Key()})
	return nil
}

// FindByID retrieves a review
func (r *MemoryReviewRepository) FindByID(_ context.Context, id uint) (*domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.reviews[id]
	if !ok {
		return nil, domain.ErrReviewNotFound
	}
	return &stored, nil
}

// FindByUserAndContent retrieves the review a user wrote for a piece of content
func (r *MemoryReviewRepository) FindByUserAndContent(_ context.Context, userID uint, key domain.ContentKey) (*domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUnique[uniqueKey{userID: userID, key: key}]
	if !ok {
		return nil, domain.ErrReviewNotFound
	}
	stored := r.reviews[id]
	return &stored, nil
}

// ExistsByUserAndContent reports whether the user reviewed the content
func (r *MemoryReviewRepository) ExistsByUserAndContent(_ context.Context, userID uint, key domain.ContentKey) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byUnique[uniqueKey{userID: userID, key: key}]
	return ok, nil
}

// ListByContent retrieves all reviews of a piece of content
func (r *MemoryReviewRepository) ListByContent(_ context.Context, key domain.ContentKey) ([]domain.Review, error) {
	return r.filter(func(rv domain.Review) bool { return rv.Key() == key }), nil
}

// ListByUser retrieves all reviews written by a user
func (r *MemoryReviewRepository) ListByUser(_ context.Context, userID uint) ([]domain.Review, error) {
	return r.filter(func(rv domain.Review) bool { return rv.UserID == userID }), nil
}

func (r *MemoryReviewRepository) filter(match func(domain.Review) bool) []domain.Review {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Review, 0)
	for _, rv := range r.reviews {
		if match(rv) {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
