package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tair/movie-review/internal/catalog/tmdb"
	"github.com/tair/movie-review/pkg/apperror"
	"github.com/tair/movie-review/pkg/logger"
)

// MetadataGateway is the part of the TMDB client the handlers use
type MetadataGateway interface {
	SearchMovies(ctx context.Context, query string, page int) (*tmdb.SearchResponse, error)
	SearchSeries(ctx context.Context, query string, page int) (*tmdb.SearchResponse, error)
	GetMovieDetails(ctx context.Context, id int64) (*tmdb.MovieDetails, error)
	GetSeriesDetails(ctx context.Context, id int64) (*tmdb.SeriesDetails, error)
	GetPopularMovies(ctx context.Context, page int) (*tmdb.SearchResponse, error)
	GetPopularSeries(ctx context.Context, page int) (*tmdb.SearchResponse, error)
	BuildImageURL(path, size string) string
	PosterURL(path string) string
	BackdropURL(path string) string
}

var imageSizes = map[string]bool{
	"w92": true, "w154": true, "w185": true, "w342": true,
	"w500": true, "w780": true, "w1280": true, "original": true,
}

// CatalogHandler serves TMDB metadata with image URLs resolved
type CatalogHandler struct {
	tmdb MetadataGateway
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(gateway MetadataGateway) *CatalogHandler {
	return &CatalogHandler{tmdb: gateway}
}

// RegisterRoutes registers the catalog routes under /api/tmdb
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	api := router.Group("/api/tmdb")
	api.Get("/movies/search", h.SearchMovies)
	api.Get("/series/search", h.SearchSeries)
	api.Get("/movies/popular", h.PopularMovies)
	api.Get("/series/popular", h.PopularSeries)
	api.Get("/movies/:id", h.MovieDetails)
	api.Get("/series/:id", h.SeriesDetails)
	api.Get("/image", h.ImageURL)
}

// itemView is a listing entry with its image URLs
type itemView struct {
	tmdb.ContentItem
	DisplayTitle string `json:"display_title"`
	DisplayDate  string `json:"display_date,omitempty"`
	PosterURL    string `json:"poster_url,omitempty"`
	BackdropURL  string `json:"backdrop_url,omitempty"`
}

type listView struct {
	Page         int        `json:"page"`
	Results      []itemView `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

type movieView struct {
	*tmdb.MovieDetails
	PosterURL   string `json:"poster_url,omitempty"`
	BackdropURL string `json:"backdrop_url,omitempty"`
}

type seriesView struct {
	*tmdb.SeriesDetails
	PosterURL   string `json:"poster_url,omitempty"`
	BackdropURL string `json:"backdrop_url,omitempty"`
}

func (h *CatalogHandler) toListView(resp *tmdb.SearchResponse) listView {
	out := listView{
		Page:         resp.Page,
		Results:      make([]itemView, 0, len(resp.Results)),
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
	}
	for _, item := range resp.Results {
		out.Results = append(out.Results, itemView{
			ContentItem:  item,
			DisplayTitle: item.DisplayTitle(),
			DisplayDate:  item.DisplayDate(),
			PosterURL:    h.tmdb.PosterURL(item.PosterPath),
			BackdropURL:  h.tmdb.BackdropURL(item.BackdropPath),
		})
	}
	return out
}

// SearchMovies handles GET /api/tmdb/movies/search
func (h *CatalogHandler) SearchMovies(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		return respondError(c, apperror.Validation("query is required"))
	}
	resp, err := h.tmdb.SearchMovies(c.UserContext(), query, c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.toListView(resp))
}

// SearchSeries handles GET /api/tmdb/series/search
func (h *CatalogHandler) SearchSeries(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		return respondError(c, apperror.Validation("query is required"))
	}
	resp, err := h.tmdb.SearchSeries(c.UserContext(), query, c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.toListView(resp))
}

// PopularMovies handles GET /api/tmdb/movies/popular
func (h *CatalogHandler) PopularMovies(c *fiber.Ctx) error {
	resp, err := h.tmdb.GetPopularMovies(c.UserContext(), c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.toListView(resp))
}

// PopularSeries handles GET /api/tmdb/series/popular
func (h *CatalogHandler) PopularSeries(c *fiber.Ctx) error {
	resp, err := h.tmdb.GetPopularSeries(c.UserContext(), c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.toListView(resp))
}

// MovieDetails handles GET /api/tmdb/movies/:id
func (h *CatalogHandler) MovieDetails(c *fiber.Ctx) error {
	id, err := contentID(c)
	if err != nil {
		return respondError(c, err)
	}
	movie, err := h.tmdb.GetMovieDetails(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(movieView{
		MovieDetails: movie,
		PosterURL:    h.tmdb.PosterURL(movie.PosterPath),
		BackdropURL:  h.tmdb.BackdropURL(movie.BackdropPath),
	})
}

// SeriesDetails handles GET /api/tmdb/series/:id
func (h *CatalogHandler) SeriesDetails(c *fiber.Ctx) error {
	id, err := contentID(c)
	if err != nil {
		return respondError(c, err)
	}
	series, err := h.tmdb.GetSeriesDetails(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(seriesView{
		SeriesDetails: series,
		PosterURL:     h.tmdb.PosterURL(series.PosterPath),
		BackdropURL:   h.tmdb.BackdropURL(series.BackdropPath),
	})
}

// ImageURL handles GET /api/tmdb/image
func (h *CatalogHandler) ImageURL(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return respondError(c, apperror.Validation("path is required"))
	}
	size := c.Query("size", "w500")
	if !imageSizes[size] {
		return respondError(c, apperror.Validation("size must be one of w92, w154, w185, w342, w500, w780, w1280, original"))
	}
	return c.JSON(fiber.Map{"url": h.tmdb.BuildImageURL(path, size)})
}

func contentID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.Validation("id must be a positive integer")
	}
	return id, nil
}

func respondError(c *fiber.Ctx, err error) error {
	status := apperror.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		logger.Error(c.UserContext()).Err(err).Str("path", c.Path()).Msg("Request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": apperror.PublicMessage(err)})
}
