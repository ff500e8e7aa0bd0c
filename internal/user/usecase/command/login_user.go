package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/logger"
)

// LoginUserCommand represents the command to login a user
type LoginUserCommand struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginUserHandler handles user login command
type LoginUserHandler struct {
	repo   domain.UserRepository
	tokens *auth.TokenManager
}

// NewLoginUserHandler creates a new login user handler
func NewLoginUserHandler(repo domain.UserRepository, tokens *auth.TokenManager) *LoginUserHandler {
	return &LoginUserHandler{repo: repo, tokens: tokens}
}

// Handle executes the login user command. Unknown users and wrong passwords
// fail with the same error.
func (h *LoginUserHandler) Handle(ctx context.Context, cmd LoginUserCommand) (*AuthResponse, error) {
	if cmd.Username == "" || cmd.Password == "" {
		auth.BurnPasswordCheck(cmd.Password)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := h.repo.FindByUsername(ctx, cmd.Username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		auth.BurnPasswordCheck(cmd.Password)
		logger.Debug(ctx).Str("username", cmd.Username).Msg("Login for unknown user")
		return nil, domain.ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.Password, cmd.Password) {
		return nil, domain.ErrInvalidCredentials
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
