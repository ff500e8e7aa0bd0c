package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reviewrepo "github.com/tair/movie-review/internal/review/repository"
	"github.com/tair/movie-review/internal/review/usecase/command"
	"github.com/tair/movie-review/internal/review/usecase/query"
	userdomain "github.com/tair/movie-review/internal/user/domain"
	userrepo "github.com/tair/movie-review/internal/user/repository"
	"github.com/tair/movie-review/kafka"
	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/metrics"
	"github.com/tair/movie-review/pkg/validation"
)

type testServer struct {
	router  *mux.Router
	handler *ReviewHandler
	tokens  *auth.TokenManager
	users   *userrepo.MemoryUserRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	users := userrepo.NewMemoryUserRepository()
	reviews := reviewrepo.NewMemoryReviewRepository()
	v := validation.New()
	events := kafka.NopPublisher{}
	reg := prometheus.NewRegistry()

	h := NewReviewHandler(
		command.NewCreateReviewHandler(reviews, users, v, events, time.Now),
		command.NewUpdateReviewHandler(reviews, users, v, events, time.Now),
		command.NewDeleteReviewHandler(reviews, users, events, time.Now),
		query.NewGetReviewHandler(reviews),
		query.NewGetContentReviewsHandler(reviews),
		query.NewGetUserReviewsHandler(reviews, users),
		query.NewGetMyReviewsHandler(reviews, users),
		query.NewHasReviewedHandler(reviews, users),
		tokens,
		metrics.NewHTTPMetrics(reg, "review_service"),
		reg,
	)

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return &testServer{router: router, handler: h, tokens: tokens, users: users}
}

func (s *testServer) login(t *testing.T, name string, role auth.Role) string {
	t.Helper()
	u := &userdomain.User{Username: name, Email: name + "@example.com", Password: "x", Role: role}
	require.NoError(t, s.users.Create(context.Background(), u))
	token, err := s.tokens.Issue(u.Username, u.Roles())
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestReviewLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", auth.RoleUser)

	rec := s.do(http.MethodPost, "/api/reviews", alice, `{"externalContentId":"550","contentType":"MOVIE","rating":4,"comment":"tense"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]interface{}
	decode(t, rec, &created)
	assert.Equal(t, "alice", created["username"])
	assert.Equal(t, "550", created["externalContentId"])
	assert.Contains(t, created, "createdAt")
	id := strconv.Itoa(int(created["id"].(float64)))

	rec = s.do(http.MethodGet, "/api/reviews/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPut, "/api/reviews/"+id, alice, `{"rating":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated map[string]interface{}
	decode(t, rec, &updated)
	assert.Equal(t, 5.0, updated["rating"])
	assert.Equal(t, "tense", updated["comment"])

	rec = s.do(http.MethodGet, "/api/reviews/check?externalContentId=550&contentType=movie", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hasReviewed":true}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/api/reviews/"+id, alice, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/reviews/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.handler.operations.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.handler.operations.WithLabelValues("delete")))
}

func TestContentSummaryAndLists(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", auth.RoleUser)
	bob := s.login(t, "bob", auth.RoleUser)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/reviews", alice, `{"externalContentId":"1399","contentType":"SERIES","rating":3}`).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/reviews", bob, `{"externalContentId":"1399","contentType":"SERIES","rating":5}`).Code)

	rec := s.do(http.MethodGet, "/api/reviews/content?externalContentId=1399&contentType=SERIES", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		TotalReviews  int64                    `json:"totalReviews"`
		AverageRating float64                  `json:"averageRating"`
		Reviews       []map[string]interface{} `json:"reviews"`
	}
	decode(t, rec, &summary)
	assert.Equal(t, int64(2), summary.TotalReviews)
	assert.Equal(t, 4.0, summary.AverageRating)
	assert.Len(t, summary.Reviews, 2)

	rec = s.do(http.MethodGet, "/api/reviews/content?externalContentId=1399&contentType=BOOK", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/reviews/user/bob", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	decode(t, rec, &list)
	assert.Len(t, list, 1)

	rec = s.do(http.MethodGet, "/api/reviews/user/nobody", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/reviews/my", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0]["username"])
}

func TestAuthorizationRules(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", auth.RoleUser)
	bob := s.login(t, "bob", auth.RoleUser)
	admin := s.login(t, "root", auth.RoleAdmin)

	rec := s.do(http.MethodPost, "/api/reviews", alice, `{"externalContentId":"550","contentType":"MOVIE","rating":4}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]interface{}
	decode(t, rec, &created)
	id := strconv.Itoa(int(created["id"].(float64)))

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/reviews", alice, `{"externalContentId":"550","contentType":"MOVIE","rating":2}`).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, "/api/reviews/"+id, bob, `{"rating":1}`).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, "/api/reviews/"+id, admin, `{"rating":1}`).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/reviews/"+id, bob, "").Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/reviews/"+id, admin, "").Code)
}

func TestUnauthenticatedRequestsGet401(t *testing.T) {
	s := newTestServer(t)

	for _, token := range []string{"", "garbage"} {
		rec := s.do(http.MethodPost, "/api/reviews", token, `{"externalContentId":"550","contentType":"MOVIE","rating":4}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		rec = s.do(http.MethodGet, "/api/reviews/my", token, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		rec = s.do(http.MethodGet, "/api/reviews/check?externalContentId=1&contentType=MOVIE", token, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/reviews/my", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBadInput(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", auth.RoleUser)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/reviews", alice, `{`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/reviews", alice, `{"externalContentId":"1","contentType":"MOVIE","rating":9}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/reviews/abc", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/reviews/0", "", "").Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestHealthCheck(t *testing.T) {
	healthy := mux.NewRouter()
	RegisterHealthCheck(healthy, nil)
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := mux.NewRouter()
	RegisterHealthCheck(down, func(context.Context) error { return errors.New("connection refused") })
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
