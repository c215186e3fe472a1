package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moviesvault/movies-vault/internal/model"
	"github.com/moviesvault/movies-vault/internal/utils"
)

// UserRepo owns the `users` table and the registration transaction.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id,username,email,password_hash,first_name,last_name,bio,profile_picture,
	date_of_birth,favorite_genres,is_active,is_staff,is_superuser,last_login,created_at,updated_at`

// CreateUserParams carries the registration input. Email may be empty; a
// synthetic placeholder address is generated so the unique email index
// always has a value to work with.
type CreateUserParams struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

// Create inserts a user together with a default preferences row in a
// single transaction and returns the new user's id. The unique indexes are
// the authority on duplicates: a 1062 on insert maps to ErrUsernameExists
// or ErrEmailExists even when a racing request won the pre-check.
func (r *UserRepo) Create(ctx context.Context, p CreateUserParams, cost int) (string, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" {
		p.Email = strings.ToLower(p.Username) + "@moviesvault.local"
	}
	hash, err := utils.HashPassword(p.Password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, first_name, last_name) VALUES (?,?,?,?,?,?)",
		id, p.Username, p.Email, hash, p.FirstName, p.LastName)
	if err != nil {
		return "", dupKeyError(err)
	}
	// Preferences defaults live in the table definition; only the link to
	// the user is written here. Same transaction, so a failed preferences
	// insert never leaves an orphaned user behind.
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user_preferences (user_id) VALUES (?)", id); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// dupKeyError translates a MySQL duplicate-key failure into the matching
// sentinel by sniffing the violated index name.
func dupKeyError(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	if strings.Contains(msg, "uq_users_email") {
		return ErrEmailExists
	}
	return ErrUsernameExists
}

// GetByUsername fetches a user by exact username. Username matching is
// case-sensitive, unlike email; the column's binary collation makes both
// this lookup and the unique index compare byte-for-byte.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u      model.User
		dob    sql.NullTime
		login  sql.NullTime
		genres sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName,
		&u.LastName, &u.Bio, &u.ProfilePicture, &dob, &genres, &u.IsActive,
		&u.IsStaff, &u.IsSuperuser, &login, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if dob.Valid {
		t := dob.Time
		u.DateOfBirth = &t
	}
	if login.Valid {
		t := login.Time
		u.LastLogin = &t
	}
	u.FavoriteGenres = decodeTags(genres)
	return u, nil
}

// decodeTags unpacks a JSON array column. Bad or empty JSON degrades to an
// empty list rather than failing the whole row.
func decodeTags(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(s.String), &tags); err != nil {
		return []string{}
	}
	return tags
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

// TouchLastLogin records a successful authentication.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login=UTC_TIMESTAMP() WHERE id=?", id)
	return err
}

// ProfileUpdate is a partial patch for the mutable profile fields. Nil
// pointers mean "leave unchanged"; id and created_at are immutable and have
// no corresponding field here.
type ProfileUpdate struct {
	Email          *string
	FirstName      *string
	LastName       *string
	Bio            *string
	ProfilePicture *string
	DateOfBirth    *time.Time
	FavoriteGenres *[]string
}

// UpdateProfile applies the supplied fields only, building the SET clause
// dynamically. A patch with no fields is a no-op, not an error.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) error {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.Email != nil {
		add("email", strings.ToLower(strings.TrimSpace(*p.Email)))
	}
	if p.FirstName != nil {
		add("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		add("last_name", *p.LastName)
	}
	if p.Bio != nil {
		add("bio", *p.Bio)
	}
	if p.ProfilePicture != nil {
		add("profile_picture", *p.ProfilePicture)
	}
	if p.DateOfBirth != nil {
		add("date_of_birth", *p.DateOfBirth)
	}
	if p.FavoriteGenres != nil {
		add("favorite_genres", encodeTags(*p.FavoriteGenres))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return dupKeyError(err)
	}
	return nil
}

// UpdatePassword replaces the stored hash. Old-password verification is
// the handler's job; this method only ever writes a bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, newPassword string, cost int) error {
	hash, err := utils.HashPassword(newPassword, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}
