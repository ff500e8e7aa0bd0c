package review

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usercommand "github.com/tair/movie-review/internal/user/usecase/command"
	"github.com/tair/movie-review/kafka"
	"github.com/tair/movie-review/pkg/auth"
)

func TestInitializeAppInMemory(t *testing.T) {
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	app, err := InitializeApp(nil, tokens, kafka.NopPublisher{}, prometheus.NewRegistry(), nil)
	require.NoError(t, err)

	_, err = app.EnsureAdmin.Handle(context.Background(), usercommand.EnsureAdminCommand{
		Username: "admin", Email: "admin@example.com", Password: "admin-secret",
	})
	require.NoError(t, err)

	router := mux.NewRouter()
	app.UserHandler.RegisterRoutes(router)
	app.ReviewHandler.RegisterRoutes(router)

	post := func(path, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := post("/auth/register", "", `{"username":"alice","email":"alice@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered usercommand.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))

	rec = post("/api/reviews", registered.Token, `{"externalContentId":"550","contentType":"MOVIE","rating":5}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = post("/auth/login", "", `{"username":"admin","password":"admin-secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var admin usercommand.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &admin))
	assert.Equal(t, auth.RoleAdmin, admin.Role)
}
