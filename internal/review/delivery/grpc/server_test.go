package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tair/movie-review/internal/review/domain"
	reviewrepo "github.com/tair/movie-review/internal/review/repository"
	"github.com/tair/movie-review/internal/review/usecase/query"
	userdomain "github.com/tair/movie-review/internal/user/domain"
	userrepo "github.com/tair/movie-review/internal/user/repository"
	"github.com/tair/movie-review/pkg/auth"
)

type harness struct {
	conn    *grpc.ClientConn
	tokens  *auth.TokenManager
	metrics *Metrics
	review  *domain.Review
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	users := userrepo.NewMemoryUserRepository()
	reviews := reviewrepo.NewMemoryReviewRepository()
	alice := &userdomain.User{Username: "alice", Email: "alice@example.com", Password: "x", Role: auth.RoleUser}
	require.NoError(t, users.Create(ctx, alice))
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	review := &domain.Review{
		UserID: alice.ID, User: *alice,
		ExternalContentID: "550", ContentType: domain.ContentTypeMovie,
		Rating: 4, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, reviews.Create(ctx, review))

	m := NewMetrics(prometheus.NewRegistry())
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		m.UnaryInterceptor,
		LoggingInterceptor,
		AuthInterceptor(tokens),
	))
	RegisterReviewQueryServer(srv, NewReviewServer(
		query.NewGetReviewHandler(reviews),
		query.NewGetContentReviewsHandler(reviews),
		query.NewHasReviewedHandler(reviews, users),
	))

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &harness{conn: conn, tokens: tokens, metrics: m, review: review}
}

func (h *harness) call(ctx context.Context, method string, in map[string]interface{}) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	err = h.conn.Invoke(ctx, method, req, out)
	return out, err
}

func TestGetReview(t *testing.T) {
	h := newHarness(t)

	out, err := h.call(context.Background(), MethodGetReview, map[string]interface{}{"id": float64(h.review.ID)})
	require.NoError(t, err)
	assert.Equal(t, "alice", out.Fields["username"].GetStringValue())
	assert.Equal(t, 4.0, out.Fields["rating"].GetNumberValue())

	_, err = h.call(context.Background(), MethodGetReview, map[string]interface{}{"id": 999.0})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.call(context.Background(), MethodGetReview, map[string]interface{}{"id": 1.5})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.requests.WithLabelValues(ServiceName, "GetReview", "NotFound")))
}

func TestGetContentSummary(t *testing.T) {
	h := newHarness(t)

	out, err := h.call(context.Background(), MethodGetContentSummary, map[string]interface{}{
		"externalContentId": "550", "contentType": "MOVIE",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Fields["totalReviews"].GetNumberValue())
	assert.Equal(t, 4.0, out.Fields["averageRating"].GetNumberValue())
	assert.Len(t, out.Fields["reviews"].GetListValue().GetValues(), 1)

	_, err = h.call(context.Background(), MethodGetContentSummary, map[string]interface{}{
		"externalContentId": "550", "contentType": "BOOK",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHasReviewedRequiresToken(t *testing.T) {
	h := newHarness(t)
	req := map[string]interface{}{"externalContentId": "550", "contentType": "MOVIE"}

	_, err := h.call(context.Background(), MethodHasReviewed, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope")
	_, err = h.call(bad, MethodHasReviewed, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := h.tokens.Issue("alice", []auth.Role{auth.RoleUser})
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
	out, err := h.call(ctx, MethodHasReviewed, req)
	require.NoError(t, err)
	assert.True(t, out.Fields["hasReviewed"].GetBoolValue())
}

func TestSplitMethod(t *testing.T) {
	service, method := splitMethod(MethodHasReviewed)
	assert.Equal(t, ServiceName, service)
	assert.Equal(t, "HasReviewed", method)

	service, method = splitMethod("Ping")
	assert.Equal(t, "unknown", service)
	assert.Equal(t, "Ping", method)
}
