package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/moviesvault/movies-vault/internal/model"
)

// WatchlistRepo owns the `watchlist_items` table.
type WatchlistRepo struct{ DB *sql.DB }

func NewWatchlistRepo(db *sql.DB) *WatchlistRepo { return &WatchlistRepo{DB: db} }

const watchlistColumns = `id,user_id,movie_id,movie_title,movie_poster,movie_overview,
	movie_release_date,movie_rating,is_watched,user_rating,user_review,
	date_added,date_watched,created_at,updated_at`

// WatchedFilter narrows ListByUser to watched or unwatched items.
type WatchedFilter int

const (
	FilterAll WatchedFilter = iota
	FilterWatched
	FilterWantToWatch
)

// ListByUser returns the user's watchlist, newest additions first.
func (r *WatchlistRepo) ListByUser(ctx context.Context, userID string, f WatchedFilter) ([]model.WatchlistItem, error) {
	q := "SELECT " + watchlistColumns + " FROM watchlist_items WHERE user_id=?"
	switch f {
	case FilterWatched:
		q += " AND is_watched=1"
	case FilterWantToWatch:
		q += " AND is_watched=0"
	}
	q += " ORDER BY date_added DESC"

	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.WatchlistItem{}
	for rows.Next() {
		it, err := scanWatchlistItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Add inserts a watchlist item. The (user_id, movie_id) unique index turns
// a duplicate add into ErrMovieInWatchlist, including under concurrency.
func (r *WatchlistRepo) Add(ctx context.Context, it model.WatchlistItem) (model.WatchlistItem, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO watchlist_items
		 (user_id, movie_id, movie_title, movie_poster, movie_overview, movie_release_date, movie_rating)
		 VALUES (?,?,?,?,?,?,?)`,
		it.UserID, it.MovieID, it.MovieTitle, it.MoviePoster, it.MovieOverview,
		it.MovieReleaseDate, it.MovieRating)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.WatchlistItem{}, ErrMovieInWatchlist
		}
		return model.WatchlistItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.WatchlistItem{}, err
	}
	return r.getByID(ctx, uint64(id))
}

// Get returns one user's entry for a movie, or sql.ErrNoRows.
func (r *WatchlistRepo) Get(ctx context.Context, userID, movieID string) (model.WatchlistItem, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+watchlistColumns+" FROM watchlist_items WHERE user_id=? AND movie_id=? LIMIT 1",
		userID, movieID)
	return scanWatchlistItem(row)
}

func (r *WatchlistRepo) getByID(ctx context.Context, id uint64) (model.WatchlistItem, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+watchlistColumns+" FROM watchlist_items WHERE id=? LIMIT 1", id)
	return scanWatchlistItem(row)
}

// Remove deletes a user's entry for a movie. Returns sql.ErrNoRows when
// the movie was not on the list.
func (r *WatchlistRepo) Remove(ctx context.Context, userID, movieID string) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM watchlist_items WHERE user_id=? AND movie_id=?", userID, movieID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkWatched flips an item to watched, stamping date_watched and
// optionally recording the user's rating and review.
func (r *WatchlistRepo) MarkWatched(ctx context.Context, userID, movieID string, rating *float64, review *string) (model.WatchlistItem, error) {
	sets := []string{"is_watched=1", "date_watched=UTC_TIMESTAMP()"}
	args := []interface{}{}
	if rating != nil {
		sets = append(sets, "user_rating=?")
		args = append(args, *rating)
	}
	if review != nil {
		sets = append(sets, "user_review=?")
		args = append(args, *review)
	}
	args = append(args, userID, movieID)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE watchlist_items SET "+strings.Join(sets, ", ")+" WHERE user_id=? AND movie_id=?",
		args...)
	if err != nil {
		return model.WatchlistItem{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.WatchlistItem{}, err
	} else if n == 0 {
		// Zero rows can also mean "already watched, nothing changed"; only
		// report not-found when the row truly is not there.
		if _, err := r.Get(ctx, userID, movieID); err != nil {
			return model.WatchlistItem{}, err
		}
	}
	return r.Get(ctx, userID, movieID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWatchlistItem(row rowScanner) (model.WatchlistItem, error) {
	var (
		it       model.WatchlistItem
		overview sql.NullString
		rating   sql.NullFloat64
		review   sql.NullString
		watched  sql.NullTime
	)
	err := row.Scan(&it.ID, &it.UserID, &it.MovieID, &it.MovieTitle, &it.MoviePoster,
		&overview, &it.MovieReleaseDate, &it.MovieRating, &it.IsWatched,
		&rating, &review, &it.DateAdded, &watched, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return model.WatchlistItem{}, err
	}
	it.MovieOverview = overview.String
	if rating.Valid {
		v := rating.Float64
		it.UserRating = &v
	}
	it.UserReview = review.String
	if watched.Valid {
		t := watched.Time
		it.DateWatched = &t
	}
	return it, nil
}
