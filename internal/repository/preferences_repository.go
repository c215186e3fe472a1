package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/moviesvault/movies-vault/internal/model"
)

// PreferencesRepo reads and updates the one-per-user preferences record.
// Creation happens inside UserRepo.Create's registration transaction.
type PreferencesRepo struct{ DB *sql.DB }

func NewPreferencesRepo(db *sql.DB) *PreferencesRepo { return &PreferencesRepo{DB: db} }

// GetByUserID fetches the preferences row for a user.
func (r *PreferencesRepo) GetByUserID(ctx context.Context, userID string) (model.UserPreferences, error) {
	var (
		p      model.UserPreferences
		genres sql.NullString
		langs  sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id,user_id,preferred_genres,preferred_languages,min_rating,include_adult,created_at,updated_at
		 FROM user_preferences WHERE user_id=? LIMIT 1`, userID).
		Scan(&p.ID, &p.UserID, &genres, &langs, &p.MinRating, &p.IncludeAdult,
			&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.UserPreferences{}, err
	}
	p.PreferredGenres = decodeTags(genres)
	p.PreferredLanguages = decodeTags(langs)
	return p, nil
}

// PreferencesUpdate is a partial patch; nil pointers leave fields alone.
type PreferencesUpdate struct {
	PreferredGenres    *[]string
	PreferredLanguages *[]string
	MinRating          *float64
	IncludeAdult       *bool
}

// Update applies the supplied fields to the user's preferences row.
func (r *PreferencesRepo) Update(ctx context.Context, userID string, p PreferencesUpdate) error {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.PreferredGenres != nil {
		add("preferred_genres", encodeTags(*p.PreferredGenres))
	}
	if p.PreferredLanguages != nil {
		add("preferred_languages", encodeTags(*p.PreferredLanguages))
	}
	if p.MinRating != nil {
		add("min_rating", *p.MinRating)
	}
	if p.IncludeAdult != nil {
		add("include_adult", *p.IncludeAdult)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, userID)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_preferences SET "+strings.Join(sets, ", ")+" WHERE user_id=?", args...)
	return err
}
