package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tair/movie-review/internal/review/usecase/command"
	"github.com/tair/movie-review/internal/review/usecase/query"
	"github.com/tair/movie-review/pkg/apperror"
	"github.com/tair/movie-review/pkg/auth"
	"github.com/tair/movie-review/pkg/logger"
	"github.com/tair/movie-review/pkg/metrics"
)

// ReviewHandler handles HTTP requests for reviews using the CQRS handlers
type ReviewHandler struct {
	// Command handlers
	createHandler *command.CreateReviewHandler
	updateHandler *command.UpdateReviewHandler
	deleteHandler *command.DeleteReviewHandler

	// Query handlers
	getHandler         *query.GetReviewHandler
	contentHandler     *query.GetContentReviewsHandler
	userReviewsHandler *query.GetUserReviewsHandler
	myReviewsHandler   *query.GetMyReviewsHandler
	hasReviewedHandler *query.HasReviewedHandler

	tokens     *auth.TokenManager
	metrics    *metrics.HTTPMetrics
	operations *prometheus.CounterVec
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(
	createHandler *command.CreateReviewHandler,
	updateHandler *command.UpdateReviewHandler,
	deleteHandler *command.DeleteReviewHandler,
	getHandler *query.GetReviewHandler,
	contentHandler *query.GetContentReviewsHandler,
	userReviewsHandler *query.GetUserReviewsHandler,
	myReviewsHandler *query.GetMyReviewsHandler,
	hasReviewedHandler *query.HasReviewedHandler,
	tokens *auth.TokenManager,
	m *metrics.HTTPMetrics,
	reg prometheus.Registerer,
) *ReviewHandler {
	return &ReviewHandler{
		createHandler:      createHandler,
		updateHandler:      updateHandler,
		deleteHandler:      deleteHandler,
		getHandler:         getHandler,
		contentHandler:     contentHandler,
		userReviewsHandler: userReviewsHandler,
		myReviewsHandler:   myReviewsHandler,
		hasReviewedHandler: hasReviewedHandler,
		tokens:             tokens,
		metrics:            m,
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "review_service_review_operations_total",
				Help: "Total number of successful review writes",
			},
			[]string{"operation"},
		),
	}
}

// RegisterRoutes registers the review routes. The literal paths are
// registered before /{id} so they are never read as an ID.
func (h *ReviewHandler) RegisterRoutes(router *mux.Router) {
	authed := AuthMiddleware(h.tokens)
	route := func(path string, fn http.HandlerFunc) http.HandlerFunc {
		return h.metrics.Middleware(path, fn)
	}

	router.HandleFunc("/api/reviews/content", route("/api/reviews/content", h.GetContentReviews)).Methods("GET")
	router.HandleFunc("/api/reviews/check", route("/api/reviews/check", authed(h.HasReviewed))).Methods("GET")
	router.HandleFunc("/api/reviews/my", route("/api/reviews/my", authed(h.GetMyReviews))).Methods("GET")
	router.HandleFunc("/api/reviews/user/{username}", route("/api/reviews/user/{username}", h.GetUserReviews)).Methods("GET")

	router.HandleFunc("/api/reviews", route("/api/reviews", authed(h.CreateReview))).Methods("POST")
	router.HandleFunc("/api/reviews/{id}", route("/api/reviews/{id}", h.GetReview)).Methods("GET")
	router.HandleFunc("/api/reviews/{id}", route("/api/reviews/{id}", authed(h.UpdateReview))).Methods("PUT")
	router.HandleFunc("/api/reviews/{id}", route("/api/reviews/{id}", authed(h.DeleteReview))).Methods("DELETE")
}

// CreateReview handles POST /api/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateReviewCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	cmd.Caller = caller(r)

	review, err := h.createHandler.Handle(r.Context(), cmd)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	h.operations.WithLabelValues("create").Inc()
	logger.Info(r.Context()).
		Uint("review_id", review.ID).
		Str("username", review.Username).
		Str("content", string(review.ContentType)+":"+review.ExternalContentID).
		Msg("Review created")
	respondJSON(w, http.StatusCreated, review)
}

// GetReview handles GET /api/reviews/{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}

	review, err := h.getHandler.Handle(r.Context(), query.GetReviewQuery{ReviewID: id})
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, review)
}

// UpdateReview handles PUT /api/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}

	var cmd command.UpdateReviewCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	cmd.ReviewID = id
	cmd.Caller = caller(r)

	review, err := h.updateHandler.Handle(r.Context(), cmd)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	h.operations.WithLabelValues("update").Inc()
	logger.Info(r.Context()).Uint("review_id", review.ID).Msg("Review updated")
	respondJSON(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := reviewID(w, r)
	if !ok {
		return
	}

	who := caller(r)
	if err := h.deleteHandler.Handle(r.Context(), command.DeleteReviewCommand{Caller: who, ReviewID: id}); err != nil {
		respondAppError(w, r, err)
		return
	}

	h.operations.WithLabelValues("delete").Inc()
	logger.Info(r.Context()).
		Uint("review_id", id).
		Str("username", who.Username).
		Bool("admin", who.IsAdmin()).
		Msg("Review deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GetContentReviews handles GET /api/reviews/content
func (h *ReviewHandler) GetContentReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := h.contentHandler.Handle(r.Context(), query.GetContentReviewsQuery{
		ExternalContentID: q.Get("externalContentId"),
		ContentType:       q.Get("contentType"),
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GetUserReviews handles GET /api/reviews/user/{username}
func (h *ReviewHandler) GetUserReviews(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	reviews, err := h.userReviewsHandler.Handle(r.Context(), query.GetUserReviewsQuery{Username: username})
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, reviews)
}

// GetMyReviews handles GET /api/reviews/my
func (h *ReviewHandler) GetMyReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.myReviewsHandler.Handle(r.Context(), query.GetMyReviewsQuery{Caller: caller(r)})
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, reviews)
}

// HasReviewed handles GET /api/reviews/check
func (h *ReviewHandler) HasReviewed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reviewed, err := h.hasReviewedHandler.Handle(r.Context(), query.HasReviewedQuery{
		Caller:            caller(r),
		ExternalContentID: q.Get("externalContentId"),
		ContentType:       q.Get("contentType"),
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"hasReviewed": reviewed})
}

// RegisterHealthCheck registers GET /health. A nil ping means there is no
// external storage to check.
func RegisterHealthCheck(router *mux.Router, ping func(ctx context.Context) error) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				logger.Warn(r.Context()).Err(err).Msg("Health check failed")
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": "database unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods("GET")
}

func caller(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

func reviewID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, "Invalid review ID")
		return 0, false
	}
	return uint(id), true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	writeError(w, status, message)
}

// respondAppError maps an application error to its status code
func respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	respondError(w, status, apperror.PublicMessage(err))
}
