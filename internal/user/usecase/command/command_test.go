package command

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/internal/user/repository"
	"github.com/tair/movie-review/pkg/apperror"
	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/validation"
)

type fixture struct {
	repo     *repository.MemoryUserRepository
	tokens   *auth.TokenManager
	register *RegisterUserHandler
	login    *LoginUserHandler
	admin    *EnsureAdminHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	repo := repository.NewMemoryUserRepository()
	v := validation.New()
	return &fixture{
		repo:     repo,
		tokens:   tokens,
		register: NewRegisterUserHandler(repo, tokens, v),
		login:    NewLoginUserHandler(repo, tokens),
		admin:    NewEnsureAdminHandler(repo, v),
	}
}

func TestRegisterIssuesUsableToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.register.Handle(ctx, RegisterUserCommand{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.Equal(t, auth.RoleUser, resp.Role)

	id, err := f.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
	assert.False(t, id.IsAdmin())

	stored, err := f.repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.Password)
	assert.True(t, auth.CheckPassword(stored.Password, "secret1"))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		cmd  RegisterUserCommand
	}{
		{"short username", RegisterUserCommand{Username: "al", Email: "al@example.com", Password: "secret1"}},
		{"long username", RegisterUserCommand{Username: string(make([]byte, 51)), Email: "x@example.com", Password: "secret1"}},
		{"bad email", RegisterUserCommand{Username: "alice", Email: "alice", Password: "secret1"}},
		{"short password", RegisterUserCommand{Username: "alice", Email: "alice@example.com", Password: "12345"}},
		{"blank username", RegisterUserCommand{Username: "   ", Email: "alice@example.com", Password: "secret1"}},
		{"long password", RegisterUserCommand{Username: "alice", Email: "alice@example.com", Password: strings.Repeat("p", 73)}},
		{"password over 72 bytes", RegisterUserCommand{Username: "alice", Email: "alice@example.com", Password: strings.Repeat("é", 40)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.register.Handle(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.register.Handle(ctx, RegisterUserCommand{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.register.Handle(ctx, RegisterUserCommand{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername, "username is checked first")

	_, err = f.register.Handle(ctx, RegisterUserCommand{Username: "alice2", Email: "alice@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestConcurrentRegistrationCreatesOneAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.register.Handle(ctx, RegisterUserCommand{Username: "racer", Email: "racer@example.com", Password: "secret1"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, apperror.KindDuplicate, apperror.KindOf(err))
	}
	assert.Equal(t, 1, ok)
	counts, _ := f.repo.CountByRole(ctx)
	assert.Equal(t, int64(1), counts[auth.RoleUser])
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.register.Handle(ctx, RegisterUserCommand{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	resp, err := f.login.Handle(ctx, LoginUserCommand{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resp.Email)
	id, err := f.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.register.Handle(ctx, RegisterUserCommand{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPassword := f.login.Handle(ctx, LoginUserCommand{Username: "alice", Password: "nope"})
	_, unknownUser := f.login.Handle(ctx, LoginUserCommand{Username: "ghost", Password: "secret1"})
	_, empty := f.login.Handle(ctx, LoginUserCommand{})

	for _, err := range []error{wrongPassword, unknownUser, empty} {
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	assert.Equal(t, apperror.PublicMessage(wrongPassword), apperror.PublicMessage(unknownUser))
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cmd := EnsureAdminCommand{Username: "root", Email: "root@example.com", Password: "adminpass"}

	first, err := f.admin.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, first.IsAdmin())

	second, err := f.admin.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	resp, err := f.login.Handle(ctx, LoginUserCommand{Username: "root", Password: "adminpass"})
	require.NoError(t, err)
	id, err := f.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())
}
