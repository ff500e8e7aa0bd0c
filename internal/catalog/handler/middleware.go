package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/movie-review/pkg/logger"
	"github.com/tair/movie-review/pkg/metrics"
	"github.com/tair/movie-review/pkg/ratelimit"
)

// fiberCarrier reads propagation headers from the incoming request
type fiberCarrier struct {
	c *fiber.Ctx
}

func (f fiberCarrier) Get(key string) string { return f.c.Get(key) }

func (f fiberCarrier) Set(key, value string) { f.c.Request().Header.Set(key, value) }

func (f fiberCarrier) Keys() []string {
	var keys []string
	f.c.Request().Header.VisitAll(func(k, _ []byte) { keys = append(keys, string(k)) })
	return keys
}

// TracingMiddleware starts a server span per request, continuing any
// incoming W3C trace context, and returns the trace id in X-Trace-Id.
func TracingMiddleware() fiber.Handler {
	tracer := otel.Tracer("catalog-service")

	return func(c *fiber.Ctx) error {
		parent := otel.GetTextMapPropagator().Extract(c.UserContext(), fiberCarrier{c: c})
		ctx, span := tracer.Start(parent, "catalog "+c.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Method()),
				attribute.String("url.path", c.Path()),
				attribute.String("client.address", c.IP()),
				attribute.String("user_agent.original", c.Get(fiber.HeaderUserAgent)),
			),
		)
		defer span.End()

		c.SetUserContext(ctx)
		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Set("X-Trace-Id", sc.TraceID().String())
		}

		err := c.Next()

		status := c.Response().StatusCode()
		span.SetName("catalog " + c.Method() + " " + c.Route().Path)
		span.SetAttributes(
			attribute.String("http.route", c.Route().Path),
			attribute.Int("http.response.status_code", status),
		)
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case status >= fiber.StatusInternalServerError:
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return err
	}
}

// LoggingMiddleware writes one access log line per request. It expects the
// requestid middleware to run first.
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		ctx := c.UserContext()
		status := c.Response().StatusCode()
		var ev *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = logger.Error(ctx)
		case status >= fiber.StatusBadRequest:
			ev = logger.Warn(ctx)
		default:
			ev = logger.Info(ctx)
		}

		ev.
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Int("status", status).
			Int64("duration_ms", elapsed.Milliseconds()).
			Int("response_size", len(c.Response().Body())).
			Msg("Catalog request completed")

		return err
	}
}

// MetricsMiddleware records request count and latency per route
func MetricsMiddleware(m *metrics.HTTPMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		m.Observe(c.Method(), c.Route().Path, c.Response().StatusCode(), time.Since(start))
		return err
	}
}

// RateLimitMiddleware limits requests per client IP. A nil limiter or a Redis
// failure lets requests through.
func RateLimitMiddleware(l *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil {
			return c.Next()
		}

		identifier := c.IP()
		res, err := l.Allow(c.UserContext(), identifier)
		if err != nil {
			logger.Error(c.UserContext()).Err(err).Str("identifier", identifier).Msg("Rate limiter error")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			logger.Warn(c.UserContext()).Str("identifier", identifier).Int("limit", res.Limit).Msg("Rate limit exceeded")
			c.Set("Retry-After", strconv.Itoa(int(time.Until(res.ResetAt).Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
