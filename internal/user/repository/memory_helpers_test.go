package repository

import (
	"context"

	"github.com/tair/movie-review/internal/user/domain"
)

// Delete removes a user so tests can model an account that disappears
// while a token issued for it is still valid.
func (r *MemoryUserRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	delete(r.byName, u.Username)
	delete(r.byMail, u.Email)
	return nil
}
