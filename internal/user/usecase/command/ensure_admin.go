package command

import (
	"context"
	"errors"

	"github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/logger"
	"github.com/tair/movie-review/pkg/validation"
)

// EnsureAdminCommand describes the administrator account provisioned at startup
type EnsureAdminCommand struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// EnsureAdminHandler creates the administrator account if it does not exist
type EnsureAdminHandler struct {
	repo     domain.UserRepository
	validate *validation.Validator
}

// NewEnsureAdminHandler creates a new ensure admin handler
func NewEnsureAdminHandler(repo domain.UserRepository, v *validation.Validator) *EnsureAdminHandler {
	return &EnsureAdminHandler{repo: repo, validate: v}
}

// Handle creates the account. An existing user with the same username is left untouched.
func (h *EnsureAdminHandler) Handle(ctx context.Context, cmd EnsureAdminCommand) (*domain.User, error) {
	if err := h.validate.Struct(ctx, cmd); err != nil {
		return nil, err
	}

	existing, err := h.repo.FindByUsername(ctx, cmd.Username)
	if err == nil {
		if !existing.IsAdmin() {
			logger.Warn(ctx).Str("username", cmd.Username).Msg("Configured admin username belongs to a regular user")
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username: cmd.Username,
		Email:    cmd.Email,
		Password: hashedPassword,
		Role:     auth.RoleAdmin,
	}
	if err := h.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info(ctx).Str("username", user.Username).Msg("Admin account created")
	return user, nil
}
