package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/moviesvault/movies-vault/internal/tmdb"
)

// MoviesHandler proxies the TMDB catalog. Responses pass through almost
// untouched; the interesting behavior (caching, rate limiting) lives in
// middleware.
type MoviesHandler struct {
	Catalog *tmdb.Client
}

func NewMoviesHandler(catalog *tmdb.Client) *MoviesHandler {
	return &MoviesHandler{Catalog: catalog}
}

func queryPage(c echo.Context) int {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	return page
}

// respond converts a catalog result into an HTTP response with uniform
// error handling: nil payload is a 404, upstream failure a 502.
func respond(c echo.Context, p tmdb.Payload, err error) error {
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "Movie catalog unavailable"})
	}
	if p == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Movie not found"})
	}
	return c.JSON(http.StatusOK, p)
}

func (h *MoviesHandler) Search(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		query = c.QueryParam("q")
	}
	if query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "query parameter is required"})
	}
	p, err := h.Catalog.SearchMovies(proxyCtx(c), query, queryPage(c))
	return respond(c, p, err)
}

func (h *MoviesHandler) Trending(c echo.Context) error {
	p, err := h.Catalog.TrendingMovies(proxyCtx(c), c.QueryParam("window"), queryPage(c))
	return respond(c, p, err)
}

func (h *MoviesHandler) Popular(c echo.Context) error {
	p, err := h.Catalog.PopularMovies(proxyCtx(c), queryPage(c))
	return respond(c, p, err)
}

func (h *MoviesHandler) TopRated(c echo.Context) error {
	p, err := h.Catalog.TopRatedMovies(proxyCtx(c), queryPage(c))
	return respond(c, p, err)
}

func (h *MoviesHandler) NowPlaying(c echo.Context) error {
	p, err := h.Catalog.NowPlayingMovies(proxyCtx(c), queryPage(c))
	return respond(c, p, err)
}

func (h *MoviesHandler) Upcoming(c echo.Context) error {
	p, err := h.Catalog.UpcomingMovies(proxyCtx(c), queryPage(c))
	return respond(c, p, err)
}

func (h *MoviesHandler) Details(c echo.Context) error {
	p, err := h.Catalog.MovieDetails(proxyCtx(c), c.Param("id"))
	return respond(c, p, err)
}

func (h *MoviesHandler) Credits(c echo.Context) error {
	p, err := h.Catalog.MovieCredits(proxyCtx(c), c.Param("id"))
	return respond(c, p, err)
}

func (h *MoviesHandler) Videos(c echo.Context) error {
	p, err := h.Catalog.MovieVideos(proxyCtx(c), c.Param("id"))
	return respond(c, p, err)
}

func (h *MoviesHandler) Similar(c echo.Context) error {
	p, err := h.Catalog.SimilarMovies(proxyCtx(c), c.Param("id"), queryPage(c))
	return respond(c, p, err)
}

func (h *MoviesHandler) Genres(c echo.Context) error {
	p, err := h.Catalog.Genres(proxyCtx(c))
	return respond(c, p, err)
}

func (h *MoviesHandler) ByGenre(c echo.Context) error {
	p, err := h.Catalog.MoviesByGenre(proxyCtx(c), c.Param("id"), queryPage(c))
	return respond(c, p, err)
}

// proxyCtx is the request context; the tmdb client carries its own
// timeout, so no extra deadline is layered on here.
func proxyCtx(c echo.Context) context.Context {
	return c.Request().Context()
}
