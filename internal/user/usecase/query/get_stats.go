package query

import (
	"context"
	"fmt"

	"github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/pkg/auth"
)

// GetStatsQuery asks for account totals
type GetStatsQuery struct{}

// UserStats holds account totals. ByRole always lists USER and ADMIN.
type UserStats struct {
	TotalUsers int64               `json:"total_users"`
	ByRole     map[auth.Role]int64 `json:"by_role"`
}

// Admins returns the number of ADMIN accounts
func (s *UserStats) Admins() int64 {
	return s.ByRole[auth.RoleAdmin]
}

type GetStatsHandler struct {
	repo domain.UserRepository
}

func NewGetStatsHandler(repo domain.UserRepository) *GetStatsHandler {
	return &GetStatsHandler{repo: repo}
}

func (h *GetStatsHandler) Handle(ctx context.Context, _ GetStatsQuery) (*UserStats, error) {
	counts, err := h.repo.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}

	stats := &UserStats{ByRole: map[auth.Role]int64{auth.RoleUser: 0, auth.RoleAdmin: 0}}
	for role, n := range counts {
		stats.ByRole[role] = n
		stats.TotalUsers += n
	}
	return stats, nil
}
