package user

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/movie-review/internal/user/delivery/http"
	"github.com/tair/movie-review/internal/user/domain"
	"github.com/tair/movie-review/internal/user/repository"
	"github.com/tair/movie-review/internal/user/usecase/command"
	"github.com/tair/movie-review/internal/user/usecase/query"
)

// ProvideUserRepository returns the traced GORM repository, or the in-memory
// one when db is nil.
func ProvideUserRepository(db *gorm.DB) domain.UserRepository {
	if db == nil {
		return repository.NewTracingUserRepository(repository.NewMemoryUserRepository())
	}
	return repository.NewTracingUserRepository(repository.NewGormUserRepository(db))
}

// Wire sets
var CommandHandlerSet = wire.NewSet(
	command.NewRegisterUserHandler,
	command.NewLoginUserHandler,
	command.NewEnsureAdminHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewGetStatsHandler,
)

var ProviderSet = wire.NewSet(
	ProvideUserRepository,
	CommandHandlerSet,
	QueryHandlerSet,
	http.NewUserHandler,
)
