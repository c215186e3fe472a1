// Package tmdb wraps The Movie Database HTTP API. The backend is a thin
// proxy in front of it: responses are decoded just enough to re-serialize
// them to clients, not mapped onto a full domain model.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const imageBaseURL = "https://image.tmdb.org/t/p/"

// Client calls the TMDB v3 API. Construct it with New; the zero value is
// not usable. The API key is injected here once at startup rather than read
// from a global.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New builds a Client for the given base URL and API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Payload is a decoded TMDB JSON document. The proxy passes these through
// without interpreting most fields.
type Payload map[string]interface{}

// get performs one API request. A 404 returns (nil, nil) so callers can
// treat "no such movie" as absence rather than failure; any other non-2xx
// status is an error.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (Payload, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb: request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("tmdb: %s returned status %d", endpoint, resp.StatusCode)
	}

	var out Payload
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tmdb: decode %s: %w", endpoint, err)
	}
	return out, nil
}

func pageParams(page int) url.Values {
	v := url.Values{}
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	return v
}

// SearchMovies searches movies by free-text query.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (Payload, error) {
	v := pageParams(page)
	v.Set("query", query)
	v.Set("include_adult", "false")
	return c.get(ctx, "search/movie", v)
}

// TrendingMovies returns trending movies for "day" or "week".
func (c *Client) TrendingMovies(ctx context.Context, window string, page int) (Payload, error) {
	if window != "week" {
		window = "day"
	}
	return c.get(ctx, "trending/movie/"+window, pageParams(page))
}

func (c *Client) PopularMovies(ctx context.Context, page int) (Payload, error) {
	return c.get(ctx, "movie/popular", pageParams(page))
}

func (c *Client) TopRatedMovies(ctx context.Context, page int) (Payload, error) {
	return c.get(ctx, "movie/top_rated", pageParams(page))
}

func (c *Client) NowPlayingMovies(ctx context.Context, page int) (Payload, error) {
	return c.get(ctx, "movie/now_playing", pageParams(page))
}

func (c *Client) UpcomingMovies(ctx context.Context, page int) (Payload, error) {
	return c.get(ctx, "movie/upcoming", pageParams(page))
}

// MovieDetails returns the detail document for one movie, or nil when TMDB
// does not know the id.
func (c *Client) MovieDetails(ctx context.Context, movieID string) (Payload, error) {
	return c.get(ctx, "movie/"+url.PathEscape(movieID), nil)
}

func (c *Client) MovieCredits(ctx context.Context, movieID string) (Payload, error) {
	return c.get(ctx, "movie/"+url.PathEscape(movieID)+"/credits", nil)
}

func (c *Client) MovieVideos(ctx context.Context, movieID string) (Payload, error) {
	return c.get(ctx, "movie/"+url.PathEscape(movieID)+"/videos", nil)
}

func (c *Client) SimilarMovies(ctx context.Context, movieID string, page int) (Payload, error) {
	return c.get(ctx, "movie/"+url.PathEscape(movieID)+"/similar", pageParams(page))
}

// Genres returns the movie genre list.
func (c *Client) Genres(ctx context.Context) (Payload, error) {
	return c.get(ctx, "genre/movie/list", nil)
}

// MoviesByGenre discovers movies carrying a genre id, most popular first.
func (c *Client) MoviesByGenre(ctx context.Context, genreID string, page int) (Payload, error) {
	v := pageParams(page)
	v.Set("with_genres", genreID)
	v.Set("sort_by", "popularity.desc")
	return c.get(ctx, "discover/movie", v)
}

// FullImageURL converts a relative poster path into a complete image URL.
// Empty paths stay empty.
func FullImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = "w500"
	}
	return imageBaseURL + size + path
}
