package model

import "time"

// WatchlistItem is one movie on one user's watchlist. Movie metadata is
// denormalized from TMDB at add time so listing a watchlist never requires
// a round trip to the catalog API. A (user_id, movie_id) unique index
// prevents the same movie being added twice.
type WatchlistItem struct {
	ID               uint64     // watchlist_items.id
	UserID           string     // watchlist_items.user_id
	MovieID          string     // watchlist_items.movie_id (TMDB id as string)
	MovieTitle       string     // watchlist_items.movie_title
	MoviePoster      string     // watchlist_items.movie_poster (full image URL)
	MovieOverview    string     // watchlist_items.movie_overview
	MovieReleaseDate string     // watchlist_items.movie_release_date
	MovieRating      float64    // watchlist_items.movie_rating (TMDB vote average)
	IsWatched        bool       // watchlist_items.is_watched
	UserRating       *float64   // watchlist_items.user_rating (nullable)
	UserReview       string     // watchlist_items.user_review
	DateAdded        time.Time  // watchlist_items.date_added
	DateWatched      *time.Time // watchlist_items.date_watched (nullable)
	CreatedAt        time.Time  // watchlist_items.created_at
	UpdatedAt        time.Time  // watchlist_items.updated_at
}
