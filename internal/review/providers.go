package review

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	reviewgrpc "github.com/tair/movie-review/internal/review/delivery/grpc"
	reviewhttp "github.com/tair/movie-review/internal/review/delivery/http"
	"github.com/tair/movie-review/internal/review/domain"
	"github.com/tair/movie-review/internal/review/repository"
	"github.com/tair/movie-review/internal/review/usecase/command"
	"github.com/tair/movie-review/internal/review/usecase/query"
	"github.com/tair/movie-review/internal/user"
	userhttp "github.com/tair/movie-review/internal/user/delivery/http"
	userdomain "github.com/tair/movie-review/internal/user/domain"
	usercommand "github.com/tair/movie-review/internal/user/usecase/command"
	"github.com/tair/movie-review/pkg/metrics"
	"github.com/tair/movie-review/pkg/validation"
)

// App holds everything cmd/review serves
type App struct {
	ReviewHandler *reviewhttp.ReviewHandler
	UserHandler   *userhttp.UserHandler
	ReviewServer  *reviewgrpc.ReviewServer
	GRPCMetrics   *reviewgrpc.Metrics
	EnsureAdmin   *usercommand.EnsureAdminHandler
}

// ProvideReviewRepository returns the traced GORM repository, or the
// in-memory one when db is nil.
func ProvideReviewRepository(db *gorm.DB) domain.ReviewRepository {
	if db == nil {
		return repository.NewTracingReviewRepository(repository.NewMemoryReviewRepository())
	}
	return repository.NewTracingReviewRepository(repository.NewGormReviewRepository(db))
}

// ProvideUserLookup narrows the user repository to what the review use cases need
func ProvideUserLookup(repo userdomain.UserRepository) domain.UserLookup {
	return repo
}

// ProvideClock returns the wall clock at storage precision
func ProvideClock() domain.Clock {
	return domain.SystemClock
}

// ProvideHTTPMetrics registers the review service HTTP metrics
func ProvideHTTPMetrics(reg prometheus.Registerer) *metrics.HTTPMetrics {
	return metrics.NewHTTPMetrics(reg, "review_service")
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideReviewRepository,
	ProvideUserLookup,
)

var CommandHandlerSet = wire.NewSet(
	command.NewCreateReviewHandler,
	command.NewUpdateReviewHandler,
	command.NewDeleteReviewHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewGetReviewHandler,
	query.NewGetContentReviewsHandler,
	query.NewGetUserReviewsHandler,
	query.NewGetMyReviewsHandler,
	query.NewHasReviewedHandler,
)

var ProviderSet = wire.NewSet(
	RepositorySet,
	CommandHandlerSet,
	QueryHandlerSet,
	ProvideClock,
	ProvideHTTPMetrics,
	validation.New,
	reviewhttp.NewReviewHandler,
	reviewgrpc.NewReviewServer,
	reviewgrpc.NewMetrics,
	user.ProviderSet,
	wire.Struct(new(App), "*"),
)
