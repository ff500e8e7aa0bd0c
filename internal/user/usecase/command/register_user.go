package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/validation"
)

// AuthResponse is returned by registration and login
type AuthResponse struct {
	Token    string    `json:"token"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     auth.Role `json:"role"`
}

// RegisterUserCommand represents the command to register a new user
type RegisterUserCommand struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// RegisterUserHandler handles user registration command
type RegisterUserHandler struct {
	repo     domain.UserRepository
	tokens   *auth.TokenManager
	validate *validation.Validator
}

// NewRegisterUserHandler creates a new register user handler
func NewRegisterUserHandler(repo domain.UserRepository, tokens *auth.TokenManager, v *validation.Validator) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo, tokens: tokens, validate: v}
}

// Handle executes the register user command
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*AuthResponse, error) {
	cmd.Username = strings.TrimSpace(cmd.Username)
	cmd.Email = strings.TrimSpace(cmd.Email)
	if err := h.validate.Struct(ctx, cmd); err != nil {
		return nil, err
	}

	taken, err := h.repo.ExistsByUsername(ctx, cmd.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrDuplicateUsername
	}
	taken, err = h.repo.ExistsByEmail(ctx, cmd.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrDuplicateEmail
	}

	hashedPassword, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username: cmd.Username,
		Email:    cmd.Email,
		Password: hashedPassword,
		Role:     auth.RoleUser,
	}

	// A concurrent registration can pass the checks above; the unique
	// indexes reject it and the repository reports the same errors.
	if err := h.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := h.tokens.Issue(user.Username, user.Roles())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResponse{
		Token:    token,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}, nil
}
