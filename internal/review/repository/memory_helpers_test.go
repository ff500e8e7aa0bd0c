package repository

import "context"

// DeleteByUser removes every review of a user, as the users foreign key cascade does
func (r *MemoryReviewRepository) DeleteByUser(_ context.Context, userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, stored := range r.reviews {
		if stored.UserID == userID {
			delete(r.reviews, id)
			delete(r.byUnique, uniqueKey{userID: userID, key: stored.Key()})
		}
	}
}
