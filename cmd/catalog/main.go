package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tair/movie-review/internal/catalog/handler"
	"github.com/tair/movie-review/internal/catalog/tmdb"
	"github.com/tair/movie-review/internal/config"
	"github.com/tair/movie-review/pkg/logger"
	"github.com/tair/movie-review/pkg/metrics"
	"github.com/tair/movie-review/pkg/ratelimit"
	"github.com/tair/movie-review/pkg/tracing"
)

func main() {
	cfg, err := config.Load("catalog-service", "8081")
	if err != nil {
		logger.Init("catalog-service", true)
		logger.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("tmdb_base_url", cfg.TMDB.BaseURL).
		Msg("Starting catalog service")

	if cfg.TMDB.APIKey == "" {
		logger.Logger.Warn().Msg("TMDB_API_KEY not set, upstream calls will be rejected")
	}

	// Initialize tracer
	tp, err := tracing.InitTracer(cfg.Tracing())
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	redisClient := connectRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client := tmdb.NewClient(cfg.TMDB, registry)
	catalog := handler.NewCatalogHandler(client)

	app := fiber.New(fiber.Config{
		AppName:      "Catalog Service",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * cfg.TMDB.Timeout,
		IdleTimeout:  30 * time.Second,
		ErrorHandler: errorHandler,
	})

	setupMiddleware(app, cfg, redisClient, metrics.NewHTTPMetrics(registry, "catalog_service"))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":          "healthy",
			"circuit_breaker": string(client.BreakerState()),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	catalog.RegisterRoutes(app)

	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down catalog service...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Logger.Info().Msg("Catalog service stopped")
}

// setupMiddleware configures global middleware
func setupMiddleware(app *fiber.App, cfg *config.Config, redisClient *redis.Client, m *metrics.HTTPMetrics) {
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.IsDevelopment(),
	}))
	app.Use(requestid.New())

	// Compression wraps the cache so stored bodies stay uncompressed
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Tracing before logging so log lines carry the trace ID
	app.Use(handler.TracingMiddleware())
	app.Use(handler.LoggingMiddleware())
	app.Use(handler.MetricsMiddleware(m))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,OPTIONS,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-Id, traceparent, tracestate",
		ExposeHeaders: "X-Request-Id, X-Trace-Id, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset",
		MaxAge:        86400,
	}))

	if redisClient != nil {
		app.Use("/api", handler.RateLimitMiddleware(ratelimit.NewLimiter(redisClient, "tmdb", cfg.TMDB.RateLimit, time.Minute)))
		logger.Logger.Info().
			Int("rate_limit_per_minute", cfg.TMDB.RateLimit).
			Msg("Rate limiting enabled")
	} else {
		logger.Logger.Warn().Msg("Rate limiting disabled (Redis not available)")
	}
}

// connectRedis returns nil when Redis is not configured or unreachable
func connectRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Logger.Warn().
			Err(err).
			Str("redis_addr", cfg.RedisAddr).
			Msg("Failed to connect to Redis")
		client.Close()
		return nil
	}

	logger.Logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("Connected to Redis")
	return client
}

// errorHandler renders errors that escape the handlers, such as unknown routes
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	if code >= fiber.StatusInternalServerError {
		logger.Error(c.UserContext()).Err(err).Str("path", c.Path()).Msg("Unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}
