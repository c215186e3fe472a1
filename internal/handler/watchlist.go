package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/moviesvault/movies-vault/internal/model"
	"github.com/moviesvault/movies-vault/internal/queue"
	"github.com/moviesvault/movies-vault/internal/repository"
	queue_publisher "github.com/moviesvault/movies-vault/internal/service"
	"github.com/moviesvault/movies-vault/internal/tmdb"
)

// WatchlistStore is the watchlist repository as the handler sees it.
type WatchlistStore interface {
	ListByUser(ctx context.Context, userID string, f repository.WatchedFilter) ([]model.WatchlistItem, error)
	Add(ctx context.Context, it model.WatchlistItem) (model.WatchlistItem, error)
	Get(ctx context.Context, userID, movieID string) (model.WatchlistItem, error)
	Remove(ctx context.Context, userID, movieID string) error
	MarkWatched(ctx context.Context, userID, movieID string, rating *float64, review *string) (model.WatchlistItem, error)
}

// MovieCatalog is the one catalog-proxy call the watchlist needs: movie
// details for denormalizing metadata at add time. nil payload means TMDB
// does not know the movie.
type MovieCatalog interface {
	MovieDetails(ctx context.Context, movieID string) (tmdb.Payload, error)
}

// WatchlistHandler bundles dependencies for watchlist endpoints.
type WatchlistHandler struct {
	Items   WatchlistStore
	Catalog MovieCatalog
}

func NewWatchlistHandler(items WatchlistStore, catalog MovieCatalog) *WatchlistHandler {
	return &WatchlistHandler{Items: items, Catalog: catalog}
}

type watchlistItemPayload struct {
	ID               uint64   `json:"id"`
	MovieID          string   `json:"movie_id"`
	MovieTitle       string   `json:"movie_title"`
	MoviePoster      string   `json:"movie_poster"`
	MovieOverview    string   `json:"movie_overview"`
	MovieReleaseDate string   `json:"movie_release_date"`
	MovieRating      float64  `json:"movie_rating"`
	IsWatched        bool     `json:"is_watched"`
	UserRating       *float64 `json:"user_rating"`
	UserReview       string   `json:"user_review"`
	DateAdded        string   `json:"date_added"`
	DateWatched      *string  `json:"date_watched"`
}

func toWatchlistItemPayload(it model.WatchlistItem) watchlistItemPayload {
	p := watchlistItemPayload{
		ID:               it.ID,
		MovieID:          it.MovieID,
		MovieTitle:       it.MovieTitle,
		MoviePoster:      it.MoviePoster,
		MovieOverview:    it.MovieOverview,
		MovieReleaseDate: it.MovieReleaseDate,
		MovieRating:      it.MovieRating,
		IsWatched:        it.IsWatched,
		UserRating:       it.UserRating,
		UserReview:       it.UserReview,
		DateAdded:        it.DateAdded.UTC().Format(time.RFC3339),
	}
	if it.DateWatched != nil {
		s := it.DateWatched.UTC().Format(time.RFC3339)
		p.DateWatched = &s
	}
	return p
}

// List returns the user's watchlist, optionally filtered by
// ?status=watched or ?status=want_to_watch.
func (h *WatchlistHandler) List(c echo.Context) error {
	f := repository.FilterAll
	switch c.QueryParam("status") {
	case "watched":
		f = repository.FilterWatched
	case "want_to_watch":
		f = repository.FilterWantToWatch
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Items.ListByUser(ctx, currentUserID(c), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get watchlist"})
	}
	payloads := make([]watchlistItemPayload, 0, len(items))
	for _, it := range items {
		payloads = append(payloads, toWatchlistItemPayload(it))
	}
	return c.JSON(http.StatusOK, echo.Map{"watchlist": payloads, "count": len(payloads)})
}

type addWatchlistReq struct {
	MovieID string `json:"movie_id"`
}

// Add fetches movie metadata from TMDB and stores a watchlist item. The
// (user, movie) unique index rejects duplicates.
func (h *WatchlistHandler) Add(c echo.Context) error {
	var req addWatchlistReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.MovieID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Movie ID is required"})
	}
	movieID := strings.TrimSpace(req.MovieID)

	// TMDB lookup first: there is no point writing a row for a movie that
	// does not exist. Uses a longer timeout than DB calls since it leaves
	// the process.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	details, err := h.Catalog.MovieDetails(ctx, movieID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "Movie lookup failed"})
	}
	if details == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Movie not found"})
	}

	item := model.WatchlistItem{
		UserID:           currentUserID(c),
		MovieID:          movieID,
		MovieTitle:       payloadString(details, "title"),
		MoviePoster:      tmdb.FullImageURL(payloadString(details, "poster_path"), "w500"),
		MovieOverview:    payloadString(details, "overview"),
		MovieReleaseDate: payloadString(details, "release_date"),
		MovieRating:      payloadFloat(details, "vote_average"),
	}

	stored, err := h.Items.Add(ctx, item)
	if err != nil {
		if err == repository.ErrMovieInWatchlist {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Movie is already in your watchlist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add movie to watchlist"})
	}

	username, _ := c.Get("username").(string)
	_ = queue_publisher.PublishUserActivity(ctx, queue.UserActivityEvent{
		Kind:       queue.EventWatchlistAdded,
		UserID:     stored.UserID,
		Username:   username,
		MovieID:    stored.MovieID,
		MovieTitle: stored.MovieTitle,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message":        "Movie added to watchlist successfully",
		"watchlist_item": toWatchlistItemPayload(stored),
	})
}

// Remove deletes a movie from the user's watchlist.
func (h *WatchlistHandler) Remove(c echo.Context) error {
	movieID := c.Param("movie_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Items.Remove(ctx, currentUserID(c), movieID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Movie not found in watchlist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to remove movie from watchlist"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Movie removed from watchlist successfully"})
}

type markWatchedReq struct {
	Rating *float64 `json:"rating"`
	Review *string  `json:"review"`
}

// MarkWatched flags a watchlist entry as watched with an optional rating
// and review.
func (h *WatchlistHandler) MarkWatched(c echo.Context) error {
	movieID := c.Param("movie_id")
	var req markWatchedReq
	_ = c.Bind(&req)

	if req.Rating != nil && (*req.Rating < 0 || *req.Rating > 10) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 0 and 10"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it, err := h.Items.MarkWatched(ctx, currentUserID(c), movieID, req.Rating, req.Review)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Movie not found in watchlist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to mark movie as watched"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":        "Movie marked as watched",
		"watchlist_item": toWatchlistItemPayload(it),
	})
}

// Status reports whether a movie is on the user's watchlist and whether it
// has been watched.
func (h *WatchlistHandler) Status(c echo.Context) error {
	movieID := c.Param("movie_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it, err := h.Items.Get(ctx, currentUserID(c), movieID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusOK, echo.Map{"in_watchlist": false, "is_watched": false})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to check watchlist status"})
	}
	return c.JSON(http.StatusOK, echo.Map{"in_watchlist": true, "is_watched": it.IsWatched})
}

// payloadString pulls a string field out of a TMDB document, tolerating
// missing or differently typed values.
func payloadString(p tmdb.Payload, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// payloadFloat pulls a numeric field out of a TMDB document.
func payloadFloat(p tmdb.Payload, key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		var f float64
		_, _ = fmt.Sscanf(v, "%f", &f)
		return f
	}
	return 0
}
