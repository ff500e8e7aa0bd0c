package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tair/movie-review/internal/user/usecase/command"
	"github.com/tair/movie-review/internal/user/usecase/query"
	"github.com/tair/movie-review/pkg/apperror"
	"github.com/tair/movie-review/pkg/logger"
	"github.com/tair/movie-review/pkg/metrics"
	"github.com/tair/movie-review/pkg/ratelimit"
)

// UserHandler handles HTTP requests for authentication
type UserHandler struct {
	// Command handlers
	registerHandler *command.RegisterUserHandler
	loginHandler    *command.LoginUserHandler

	// Query handlers
	statsHandler *query.GetStatsHandler

	metrics         *metrics.HTTPMetrics
	registeredUsers *prometheus.GaugeVec
	limiter         *ratelimit.Limiter
}

// NewUserHandler creates a new user handler. limiter may be nil.
func NewUserHandler(
	registerHandler *command.RegisterUserHandler,
	loginHandler *command.LoginUserHandler,
	statsHandler *query.GetStatsHandler,
	m *metrics.HTTPMetrics,
	reg prometheus.Registerer,
	limiter *ratelimit.Limiter,
) *UserHandler {
	return &UserHandler{
		registerHandler: registerHandler,
		loginHandler:    loginHandler,
		statsHandler:    statsHandler,
		metrics:         m,
		registeredUsers: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "review_service_registered_users",
			Help: "Number of registered users by role",
		}, []string{"role"}),
		limiter: limiter,
	}
}

// Register handles POST /auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var cmd command.RegisterUserCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.registerHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.respondAppError(w, r, err)
		return
	}

	logger.Info(r.Context()).Str("username", resp.Username).Msg("User registered")
	h.updateRegisteredUsersMetric(r)
	h.respondJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cmd command.LoginUserCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.loginHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.respondAppError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// updateRegisteredUsersMetric refreshes the per-role user gauge
func (h *UserHandler) updateRegisteredUsersMetric(r *http.Request) {
	stats, err := h.statsHandler.Handle(r.Context(), query.GetStatsQuery{})
	if err != nil {
		logger.Warn(r.Context()).Err(err).Msg("Failed to refresh user metrics")
		return
	}
	for role, n := range stats.ByRole {
		h.registeredUsers.WithLabelValues(string(role)).Set(float64(n))
	}
}

// respondJSON sends a JSON response
func (h *UserHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func (h *UserHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError maps an application error to its status code
func (h *UserHandler) respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	h.respondError(w, status, apperror.PublicMessage(err))
}

// RegisterRoutes registers the authentication routes
func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	limit := ratelimit.Middleware(h.limiter)

	router.Handle("/auth/register", limit(h.metrics.Middleware("/auth/register", h.Register))).Methods("POST")
	router.Handle("/auth/login", limit(h.metrics.Middleware("/auth/login", h.Login))).Methods("POST")
}
