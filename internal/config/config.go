package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tair/movie-review/pkg/database"
	"github.com/tair/movie-review/pkg/tracing"
)

// Version is stamped at build time with -ldflags "-X .../internal/config.Version=..."
var Version = "dev"

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the configuration shared by the review and catalog services
type Config struct {
	ServiceName    string
	Environment    string
	LogLevel       string
	HTTPPort       string
	GRPCPort       string
	StorageDriver  string
	Database       database.Config
	JWTSecret      string
	JWTTTL         time.Duration
	RedisAddr      string
	RedisPassword  string
	AuthRateLimit  int
	TrustedProxies []string
	KafkaBrokers   []string
	KafkaTopic     string
	JaegerEndpoint string
	TraceSampling  float64
	TMDB           TMDBConfig
	Admin          AdminConfig
}

// AdminConfig describes the ADMIN account seeded at startup.
// Seeding is skipped when Username or Password is empty.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// Enabled reports whether an ADMIN account should be seeded
func (a AdminConfig) Enabled() bool {
	return a.Username != "" && a.Password != ""
}

// TMDBConfig holds the metadata gateway settings
type TMDBConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Language     string
	Timeout      time.Duration
	RateLimit    int
}

// Tracing returns the tracer settings of the service
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName:    c.ServiceName,
		ServiceVersion: Version,
		Environment:    c.Environment,
		JaegerEndpoint: c.JaegerEndpoint,
		SampleRatio:    c.TraceSampling,
	}
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real env vars win.
func Load(serviceName, defaultHTTPPort string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName:   getEnv("OTEL_SERVICE_NAME", serviceName),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		HTTPPort:      getEnv("HTTP_PORT", defaultHTTPPort),
		GRPCPort:      getEnv("GRPC_PORT", "9090"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "moviereviewdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "review-events"),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", tracing.DefaultJaegerEndpoint),
		TMDB: TMDBConfig{
			APIKey:       os.Getenv("TMDB_API_KEY"),
			BaseURL:      getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			ImageBaseURL: getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"),
			Language:     getEnv("TMDB_LANGUAGE", "es-ES"),
		},
		Admin: AdminConfig{
			Username: os.Getenv("ADMIN_USERNAME"),
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	cfg.KafkaBrokers = getEnvList("KAFKA_BROKERS")
	cfg.TrustedProxies = getEnvList("TRUSTED_PROXIES")

	ttlSeconds, err := getEnvInt("JWT_TTL_SECONDS", 86400)
	if err != nil {
		return nil, err
	}
	cfg.JWTTTL = time.Duration(ttlSeconds) * time.Second

	if cfg.AuthRateLimit, err = getEnvInt("AUTH_RATE_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.TMDB.RateLimit, err = getEnvInt("TMDB_RATE_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.TraceSampling, err = getEnvFloat("TRACE_SAMPLE_RATIO", 1); err != nil {
		return nil, err
	}
	if cfg.TMDB.Timeout, err = getEnvDuration("TMDB_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StorageDriver != StoragePostgres && c.StorageDriver != StorageMemory {
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL_SECONDS must be positive")
	}
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.JWTSecret = "development-only-secret-change-me"
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blank entries
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

// getEnvDuration accepts Go durations ("10s") or plain seconds ("10")
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
