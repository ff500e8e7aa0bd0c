package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// CreateReview godoc
// @Summary Review a movie or series
// @Description One review per user and content; a second attempt returns 409
// @Tags Reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{externalContentId=string,contentType=string,rating=int,comment=string} true "Review data"
// @Success 201 {object} object{id=int,username=string,externalContentId=string,contentType=string,rating=int,comment=string,createdAt=string,updatedAt=string}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /api/reviews [post]
func (h *ReviewHandler) CreateReviewDoc() {}

// GetReview godoc
// @Summary Get review by ID
// @Tags Reviews
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} object{id=int,username=string,externalContentId=string,contentType=string,rating=int,comment=string,createdAt=string,updatedAt=string}
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /api/reviews/{id} [get]
func (h *ReviewHandler) GetReviewDoc() {}

// UpdateReview godoc
// @Summary Update a review
// @Description Only the author may update. Omitted fields are kept.
// @Tags Reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param request body object{rating=int,comment=string} true "Fields to change"
// @Success 200 {object} object{id=int,username=string,externalContentId=string,contentType=string,rating=int,comment=string,createdAt=string,updatedAt=string}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /api/reviews/{id} [put]
func (h *ReviewHandler) UpdateReviewDoc() {}

// DeleteReview godoc
// @Summary Delete a review
// @Description The author or an ADMIN may delete
// @Tags Reviews
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 204
// @Failure 401 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /api/reviews/{id} [delete]
func (h *ReviewHandler) DeleteReviewDoc() {}

// GetContentReviews godoc
// @Summary Reviews of a piece of content
// @Description Reviews newest first with count and average rating (0 when none)
// @Tags Reviews
// @Produce json
// @Param externalContentId query string true "External content ID"
// @Param contentType query string true "MOVIE or SERIES"
// @Success 200 {object} object{externalContentId=string,contentType=string,totalReviews=int,averageRating=number,reviews=array}
// @Failure 400 {object} object{error=string}
// @Router /api/reviews/content [get]
func (h *ReviewHandler) GetContentReviewsDoc() {}

// GetUserReviews godoc
// @Summary Reviews written by a user
// @Tags Reviews
// @Produce json
// @Param username path string true "Username"
// @Success 200 {array} object{id=int,username=string,externalContentId=string,contentType=string,rating=int,comment=string,createdAt=string,updatedAt=string}
// @Failure 404 {object} object{error=string}
// @Router /api/reviews/user/{username} [get]
func (h *ReviewHandler) GetUserReviewsDoc() {}

// GetMyReviews godoc
// @Summary Reviews written by the caller
// @Tags Reviews
// @Security BearerAuth
// @Produce json
// @Success 200 {array} object{id=int,username=string,externalContentId=string,contentType=string,rating=int,comment=string,createdAt=string,updatedAt=string}
// @Failure 401 {object} object{error=string}
// @Router /api/reviews/my [get]
func (h *ReviewHandler) GetMyReviewsDoc() {}

// HasReviewed godoc
// @Summary Whether the caller reviewed a piece of content
// @Tags Reviews
// @Security BearerAuth
// @Produce json
// @Param externalContentId query string true "External content ID"
// @Param contentType query string true "MOVIE or SERIES"
// @Success 200 {object} object{hasReviewed=bool}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Router /api/reviews/check [get]
func (h *ReviewHandler) HasReviewedDoc() {}

// HealthCheck godoc
// @Summary Health check
// @Description Check service health and database connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string}
// @Failure 503 {object} object{status=string,error=string}
// @Router /health [get]
func (h *ReviewHandler) HealthCheckDoc() {}
