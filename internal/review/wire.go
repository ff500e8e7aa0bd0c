//go:build wireinject
// +build wireinject

package review

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/tair/movie-review/kafka"
	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/ratelimit"
)

// InitializeApp builds the review service. A nil db selects in-memory storage.
func InitializeApp(
	db *gorm.DB,
	tokens *auth.TokenManager,
	events kafka.EventPublisher,
	reg prometheus.Registerer,
	limiter *ratelimit.Limiter,
) (*App, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
