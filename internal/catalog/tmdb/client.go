package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tair/movie-review/internal/config"
	"github.com/tair/movie-review/pkg/apperror"
	"github.com/tair/movie-review/pkg/circuitbreaker"
	"github.com/tair/movie-review/pkg/logger"
)

// Image sizes used by the convenience helpers
const (
	PosterSize   = "w500"
	BackdropSize = "w780"
)

// ErrUnavailable is returned for every upstream failure
var ErrUnavailable = apperror.New(apperror.KindExternal, "metadata service unavailable")

// Client talks to the TMDB v3 API
type Client struct {
	httpClient   *http.Client
	baseURL      string
	imageBaseURL string
	apiKey       string
	language     string
	timeout      time.Duration
	breaker      *circuitbreaker.Breaker
	requests     *prometheus.CounterVec
}

// NewClient creates a TMDB client guarded by a circuit breaker
func NewClient(cfg config.TMDBConfig, reg prometheus.Registerer) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	language := cfg.Language
	if language == "" {
		language = "es-ES"
	}

	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		apiKey:       cfg.APIKey,
		language:     language,
		timeout:      timeout,
		breaker:      circuitbreaker.New("tmdb", 5, 30*time.Second),
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_service_tmdb_requests_total",
				Help: "Total number of TMDB upstream calls by outcome",
			},
			[]string{"endpoint", "outcome"},
		),
	}
}

// SearchMovies searches movies by title
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*SearchResponse, error) {
	var out SearchResponse
	params := url.Values{"query": {query}, "page": {pageParam(page)}}
	if err := c.get(ctx, "search_movies", "/search/movie", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchSeries searches TV series by name
func (c *Client) SearchSeries(ctx context.Context, query string, page int) (*SearchResponse, error) {
	var out SearchResponse
	params := url.Values{"query": {query}, "page": {pageParam(page)}}
	if err := c.get(ctx, "search_series", "/search/tv", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMovieDetails returns the details of one movie
func (c *Client) GetMovieDetails(ctx context.Context, id int64) (*MovieDetails, error) {
	var out MovieDetails
	if err := c.get(ctx, "movie_details", "/movie/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSeriesDetails returns the details of one series
func (c *Client) GetSeriesDetails(ctx context.Context, id int64) (*SeriesDetails, error) {
	var out SeriesDetails
	if err := c.get(ctx, "series_details", "/tv/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPopularMovies returns a page of popular movies
func (c *Client) GetPopularMovies(ctx context.Context, page int) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.get(ctx, "popular_movies", "/movie/popular", url.Values{"page": {pageParam(page)}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPopularSeries returns a page of popular series
func (c *Client) GetPopularSeries(ctx context.Context, page int) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.get(ctx, "popular_series", "/tv/popular", url.Values{"page": {pageParam(page)}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BuildImageURL composes the CDN URL of an image. An empty path yields "".
func (c *Client) BuildImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = "original"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.imageBaseURL + "/" + size + path
}

// PosterURL builds a poster URL at w500
func (c *Client) PosterURL(path string) string {
	return c.BuildImageURL(path, PosterSize)
}

// BackdropURL builds a backdrop URL at w780
func (c *Client) BackdropURL(path string) string {
	return c.BuildImageURL(path, BackdropSize)
}

// BreakerState exposes the circuit state for health reporting
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

func pageParam(page int) string {
	if page < 1 {
		page = 1
	}
	return strconv.Itoa(page)
}

// statusError is an upstream non-2xx answer
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("tmdb returned status %d", e.code)
}

func (e *statusError) clientSide() bool {
	return e.code >= 400 && e.code < 500 && e.code != http.StatusTooManyRequests
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)

	// Answers that say nothing about upstream health are handed back outside
	// the breaker: 4xx replies and requests the caller abandoned.
	var callerErr error
	err := c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				callerErr = err
				return nil
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			se := &statusError{code: resp.StatusCode}
			if se.clientSide() {
				callerErr = se
				return nil
			}
			return se
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode tmdb response: %w", err)
		}
		return nil
	})

	if err == nil {
		err = callerErr
	}
	if err == nil {
		c.requests.WithLabelValues(endpoint, "success").Inc()
		return nil
	}

	var se *statusError
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		c.requests.WithLabelValues(endpoint, "rejected").Inc()
		logger.Warn(ctx).Str("endpoint", endpoint).Msg("TMDB circuit open, request rejected")
	case errors.As(err, &se) && se.clientSide():
		c.requests.WithLabelValues(endpoint, "client_error").Inc()
		logger.Warn(ctx).Str("endpoint", endpoint).Int("status", se.code).Msg("TMDB rejected request")
	case errors.As(err, &se):
		c.requests.WithLabelValues(endpoint, "error").Inc()
		logger.Error(ctx).Str("endpoint", endpoint).Int("status", se.code).Msg("TMDB upstream returned status")
	default:
		c.requests.WithLabelValues(endpoint, "error").Inc()
		logger.Error(ctx).Err(redact(err)).Str("endpoint", endpoint).Msg("TMDB request failed")
	}
	return apperror.Wrap(apperror.KindExternal, ErrUnavailable.Message, redact(err))
}

// redact drops the request URL, which carries the api key
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
