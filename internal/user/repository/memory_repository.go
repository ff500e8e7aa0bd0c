package repository

import (
	"context"
	"sync"
	"time"

	"github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/pkg/auth"
)

// MemoryUserRepository is an in-process UserRepository with the same
// uniqueness rules as the users table.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID uint
	byID   map[uint]domain.User
	byName map[string]uint
	byMail map[string]uint
}

// NewMemoryUserRepository creates an empty repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		nextID: 1,
		byID:   make(map[uint]domain.User),
		byName: make(map[string]uint),
		byMail: make(map[string]uint),
	}
}

// Create stores the user and assigns its ID
func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[user.Username]; ok {
		return domain.ErrDuplicateUsername
	}
	if _, ok := r.byMail[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	user.ID = r.nextID
	r.nextID++

	r.byID[user.ID] = *user
	r.byName[user.Username] = user.ID
	r.byMail[user.Email] = user.ID
	return nil
}

// FindByUsername retrieves a user by username
func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := r.byID[id]
	return &u, nil
}

// ExistsByUsername reports whether the username is taken
func (r *MemoryUserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[username]
	return ok, nil
}

// ExistsByEmail reports whether the email is taken
func (r *MemoryUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byMail[email]
	return ok, nil
}

// CountByRole tallies stored users per role
func (r *MemoryUserRepository) CountByRole(_ context.Context) (map[auth.Role]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[auth.Role]int64)
	for _, u := range r.byID {
		counts[u.Role]++
	}
	return counts, nil
}
