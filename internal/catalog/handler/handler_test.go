package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tair/movie-review/internal/catalog/tmdb"
	"github.com/tair/movie-review/internal/config"
	"github.com/tair/movie-review/pkg/apperror"
	"github.com/tair/movie-review/pkg/metrics"
	"github.com/tair/movie-review/pkg/ratelimit"
)

type fakeGateway struct {
	*tmdb.Client
	err       error
	lastQuery string
	lastPage  int
}

func (f *fakeGateway) SearchMovies(_ context.Context, query string, page int) (*tmdb.SearchResponse, error) {
	f.lastQuery, f.lastPage = query, page
	if f.err != nil {
		return nil, f.err
	}
	return &tmdb.SearchResponse{
		Page: page,
		Results: []tmdb.ContentItem{
			{ID: 550, Title: "Fight Club", ReleaseDate: "1999-10-15", PosterPath: "/p.jpg"},
		},
		TotalPages: 1, TotalResults: 1,
	}, nil
}

func (f *fakeGateway) SearchSeries(_ context.Context, query string, page int) (*tmdb.SearchResponse, error) {
	f.lastQuery, f.lastPage = query, page
	return &tmdb.SearchResponse{Page: page, Results: []tmdb.ContentItem{{ID: 1399, Name: "Game of Thrones", FirstAirDate: "2011-04-17"}}}, f.err
}

func (f *fakeGateway) GetMovieDetails(_ context.Context, id int64) (*tmdb.MovieDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &tmdb.MovieDetails{ID: id, Title: "Fight Club", BackdropPath: "/b.jpg"}, nil
}

func (f *fakeGateway) GetSeriesDetails(_ context.Context, id int64) (*tmdb.SeriesDetails, error) {
	return &tmdb.SeriesDetails{ID: id, Name: "Game of Thrones"}, f.err
}

func (f *fakeGateway) GetPopularMovies(_ context.Context, page int) (*tmdb.SearchResponse, error) {
	f.lastPage = page
	return &tmdb.SearchResponse{Page: page, Results: []tmdb.ContentItem{}}, f.err
}

func (f *fakeGateway) GetPopularSeries(_ context.Context, page int) (*tmdb.SearchResponse, error) {
	f.lastPage = page
	return &tmdb.SearchResponse{Page: page, Results: []tmdb.ContentItem{}}, f.err
}

func newApp(t *testing.T, gw *fakeGateway) *fiber.App {
	t.Helper()
	gw.Client = tmdb.NewClient(config.TMDBConfig{ImageBaseURL: "https://img.test/t/p"}, prometheus.NewRegistry())

	app := fiber.New()
	app.Use(TracingMiddleware(), LoggingMiddleware(), MetricsMiddleware(metrics.NewHTTPMetrics(prometheus.NewRegistry(), "catalog_service")))
	NewCatalogHandler(gw).RegisterRoutes(app)
	return app
}

func get(t *testing.T, app *fiber.App, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func TestSearchMoviesAddsImageURLs(t *testing.T) {
	gw := &fakeGateway{}
	app := newApp(t, gw)

	status, body := get(t, app, "/api/tmdb/movies/search?query=fight+club")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fight club", gw.lastQuery)
	assert.Equal(t, 1, gw.lastPage)

	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	item := results[0].(map[string]interface{})
	assert.Equal(t, "Fight Club", item["display_title"])
	assert.Equal(t, "1999-10-15", item["display_date"])
	assert.Equal(t, "https://img.test/t/p/w500/p.jpg", item["poster_url"])
	assert.NotContains(t, item, "backdrop_url")
}

func TestSeriesEndpoints(t *testing.T) {
	gw := &fakeGateway{}
	app := newApp(t, gw)

	status, body := get(t, app, "/api/tmdb/series/search?query=thrones&page=2")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, gw.lastPage)
	item := body["results"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Game of Thrones", item["display_title"])
	assert.Equal(t, "2011-04-17", item["display_date"])

	status, body = get(t, app, "/api/tmdb/series/1399")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Game of Thrones", body["name"])

	status, _ = get(t, app, "/api/tmdb/series/popular?page=4")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 4, gw.lastPage)
}

func TestMovieDetailsAndPopular(t *testing.T) {
	gw := &fakeGateway{}
	app := newApp(t, gw)

	status, body := get(t, app, "/api/tmdb/movies/550")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 550.0, body["id"])
	assert.Equal(t, "https://img.test/t/p/w780/b.jpg", body["backdrop_url"])

	status, _ = get(t, app, "/api/tmdb/movies/popular")
	assert.Equal(t, http.StatusOK, status)

	status, body = get(t, app, "/api/tmdb/movies/abc")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["error"])
}

func TestValidationErrors(t *testing.T) {
	app := newApp(t, &fakeGateway{})

	status, _ := get(t, app, "/api/tmdb/movies/search?query=%20")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get(t, app, "/api/tmdb/image?path=/a.jpg&size=huge")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get(t, app, "/api/tmdb/image")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := get(t, app, "/api/tmdb/image?path=/a.jpg&size=w342")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://img.test/t/p/w342/a.jpg", body["url"])
}

func TestUpstreamFailureIs503(t *testing.T) {
	gw := &fakeGateway{err: apperror.Wrap(apperror.KindExternal, "metadata service unavailable", io.ErrUnexpectedEOF)}
	app := newApp(t, gw)

	status, body := get(t, app, "/api/tmdb/movies/search?query=x")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "metadata service unavailable", body["error"])

	status, _ = get(t, app, "/api/tmdb/movies/550")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestMiddlewaresWithoutRedis(t *testing.T) {
	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { down.Close() })

	for name, mw := range map[string]fiber.Handler{
		"nil limiter":  RateLimitMiddleware(nil),
		"limiter down": RateLimitMiddleware(ratelimit.NewLimiter(down, "catalog", 1, time.Minute)),
	} {
		t.Run(name, func(t *testing.T) {
			app := fiber.New()
			app.Use(mw)
			app.Get("/ping", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

			status, body := get(t, app, "/ping")
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, true, body["ok"])
		})
	}
}

func TestTracingContinuesIncomingTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	otel.SetTracerProvider(sdktrace.NewTracerProvider())
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator())
	})

	app := newApp(t, &fakeGateway{})
	req := httptest.NewRequest(http.MethodGet, "/api/tmdb/movies/popular", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", resp.Header.Get("X-Trace-Id"))
}
