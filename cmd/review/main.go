package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"

	_ "github.com/tair/movie-review/docs/review"
	"github.com/tair/movie-review/internal/config"
	"github.com/tair/movie-review/internal/review"
	reviewgrpc "github.com/tair/movie-review/internal/review/delivery/grpc"
	reviewhttp "github.com/tair/movie-review/internal/review/delivery/http"
	reviewrepo "github.com/tair/movie-review/internal/review/repository"
	userrepo "github.com/tair/movie-review/internal/user/repository"
	usercommand "github.com/tair/movie-review/internal/user/usecase/command"
	"github.com/tair/movie-review/kafka"
	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/database"
	"github.com/tair/movie-review/pkg/logger"
	"github.com/tair/movie-review/pkg/ratelimit"
	"github.com/tair/movie-review/pkg/tracing"
)

func main() {
	cfg, err := config.Load("review-service", "8080")
	if err != nil {
		logger.Init("review-service", true)
		logger.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Str("storage", cfg.StorageDriver).
		Msg("Starting review service")

	tp, err := tracing.InitTracer(cfg.Tracing())
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Tracing disabled")
	}

	db := connectDatabase(cfg)
	var ping func(ctx context.Context) error
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
		}
		defer sqlDB.Close()
		ping = sqlDB.PingContext
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create token manager")
	}

	redisClient := connectRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	var limiter *ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewLimiter(redisClient, "auth", cfg.AuthRateLimit, time.Minute)
		if err := limiter.TrustProxies(cfg.TrustedProxies); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Invalid TRUSTED_PROXIES")
		}
	}

	var events kafka.EventPublisher = kafka.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Kafka unavailable, review events will be dropped")
		} else {
			defer publisher.Close()
			events = publisher
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize handlers with Wire DI
	app, err := review.InitializeApp(db, tokens, events, registry, limiter)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize application")
	}

	seedAdmin(cfg, app.EnsureAdmin)

	httpServer := newHTTPServer(cfg, app, registry, ping)
	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Str("swagger", "/swagger/index.html").
			Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	grpcServer, healthServer := newGRPCServer(app, tokens)
	go startGRPCServer(grpcServer, cfg.GRPCPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down servers...")
	healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	grpcServer.GracefulStop()

	if tp != nil {
		if err := tracing.Shutdown(ctx, tp); err != nil {
			logger.Logger.Error().Err(err).Msg("Tracer shutdown failed")
		}
	}
	logger.Logger.Info().Msg("Review service stopped")
}

// connectDatabase returns nil when the memory driver is selected
func connectDatabase(cfg *config.Config) *gorm.DB {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Logger.Warn().Msg("Using in-memory storage; data is lost on restart")
		return nil
	}

	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Users first: reviews reference them
	if err := userrepo.NewGormUserRepository(db).AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to migrate users")
	}
	if err := reviewrepo.NewGormReviewRepository(db).AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to migrate reviews")
	}

	logger.Logger.Info().Msg("Database initialized successfully")
	return db
}

// connectRedis returns nil when Redis is not configured or unreachable
func connectRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Logger.Info().Msg("REDIS_ADDR not set, rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, rate limiting disabled")
		client.Close()
		return nil
	}

	logger.Logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	return client
}

func seedAdmin(cfg *config.Config, ensure *usercommand.EnsureAdminHandler) {
	if !cfg.Admin.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := ensure.Handle(ctx, usercommand.EnsureAdminCommand{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	})
	if err != nil {
		logger.Logger.Fatal().Err(err).Str("username", cfg.Admin.Username).Msg("Failed to seed admin account")
	}
}

func newHTTPServer(cfg *config.Config, app *review.App, registry *prometheus.Registry, ping func(ctx context.Context) error) *http.Server {
	router := mux.NewRouter()
	router.Use(
		reviewhttp.RecoveryMiddleware,
		reviewhttp.LoggingMiddleware,
		reviewhttp.SecurityHeadersMiddleware,
	)

	app.UserHandler.RegisterRoutes(router)
	app.ReviewHandler.RegisterRoutes(router)
	reviewhttp.RegisterHealthCheck(router, ping)
	reviewhttp.RegisterSwaggerDocs(router, httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := reviewhttp.TracingMiddleware(cfg.ServiceName)(c.Handler(router))
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newGRPCServer(app *review.App, tokens *auth.TokenManager) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			app.GRPCMetrics.UnaryInterceptor,
			reviewgrpc.LoggingInterceptor,
			reviewgrpc.AuthInterceptor(tokens),
		),
	)

	reviewgrpc.RegisterReviewQueryServer(grpcServer, app.ReviewServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(reviewgrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Register reflection service (for grpcurl and grpc tools)
	reflection.Register(grpcServer)
	return grpcServer, healthServer
}

func startGRPCServer(grpcServer *grpc.Server, port string) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		logger.Logger.Fatal().Err(err).Str("port", port).Msg("Failed to listen")
	}

	logger.Logger.Info().Str("port", port).Msg("gRPC server started")
	if err := grpcServer.Serve(lis); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start gRPC server")
	}
}
