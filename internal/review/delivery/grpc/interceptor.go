package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/logger"
)

// Metrics holds per-RPC counters and latency histograms
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the gRPC metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "review_service_grpc_requests_total",
			Help: "gRPC calls handled, by service, method and status code",
		}, []string{"service", "method", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "review_service_grpc_request_duration_seconds",
			Help:    "gRPC handling latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"service", "method"}),
	}
}

// splitMethod turns "/pkg.Service/Method" into its service and method parts
func splitMethod(fullMethod string) (string, string) {
	name := strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "unknown", name
}

// UnaryInterceptor records request count and latency
func (m *Metrics) UnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	service, method := splitMethod(info.FullMethod)
	m.requests.WithLabelValues(service, method, status.Code(err).String()).Inc()
	m.duration.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
	return resp, err
}

// LoggingInterceptor writes one log line per call. Caller mistakes are
// warnings, anything else that fails is an error.
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)

	code := status.Code(err)
	var ev *zerolog.Event
	switch code {
	case codes.OK:
		ev = logger.Info(ctx)
	case codes.NotFound, codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied:
		ev = logger.Warn(ctx).Str("error", status.Convert(err).Message())
	default:
		ev = logger.Error(ctx).Err(err)
	}
	ev.
		Str("grpc_method", info.FullMethod).
		Str("grpc_code", code.String()).
		Int64("duration_ms", elapsed.Milliseconds()).
		Msg("gRPC call completed")

	return resp, err
}

// AuthInterceptor validates bearer tokens for the methods that need a caller
func AuthInterceptor(tokens *auth.TokenManager) grpc.UnaryServerInterceptor {
	protected := map[string]bool{
		MethodHasReviewed: true,
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !protected[info.FullMethod] {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}

		token := values[0]
		if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
			token = token[7:]
		}

		id, err := tokens.Verify(token)
		if err != nil {
			logger.Warn(ctx).Err(err).Str("method", info.FullMethod).Msg("Invalid token")
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}

		return handler(auth.WithIdentity(ctx, id), req)
	}
}
