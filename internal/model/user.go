package model

import "time"

// User represents a registered account as stored in the `users` table.
// The json tags are omitted because these structs are used internally by
// the repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//
//	ID             – opaque UUID primary key of the user.
//	Username       – unique login name (case-sensitive).
//	Email          – unique email address; a synthetic placeholder is
//	                 generated at registration when the client omits it.
//	PasswordHash   – bcrypt hashed password; plaintext is never stored.
//	FavoriteGenres – free-form genre tags, persisted as a JSON array.
//	IsActive       – disabled accounts are rejected at login before the
//	                 password is even compared.
//	LastLogin      – set on every successful authentication (nullable).
type User struct {
	ID             string     // users.id
	Username       string     // users.username
	Email          string     // users.email
	PasswordHash   string     // users.password_hash
	FirstName      string     // users.first_name
	LastName       string     // users.last_name
	Bio            string     // users.bio
	ProfilePicture string     // users.profile_picture
	DateOfBirth    *time.Time // users.date_of_birth (nullable)
	FavoriteGenres []string   // users.favorite_genres (JSON array column)
	IsActive       bool       // users.is_active
	IsStaff        bool       // users.is_staff
	IsSuperuser    bool       // users.is_superuser
	LastLogin      *time.Time // users.last_login (nullable)
	CreatedAt      time.Time  // users.created_at
	UpdatedAt      time.Time  // users.updated_at
}

// UserPreferences is the one-to-one companion record created alongside
// every User at registration time. It drives no logic in the backend yet;
// it is stored and served verbatim for the recommendation UI.
type UserPreferences struct {
	ID                 uint64    // user_preferences.id
	UserID             string    // user_preferences.user_id
	PreferredGenres    []string  // user_preferences.preferred_genres (JSON array column)
	PreferredLanguages []string  // user_preferences.preferred_languages (JSON array column)
	MinRating          float64   // user_preferences.min_rating
	IncludeAdult       bool      // user_preferences.include_adult
	CreatedAt          time.Time // user_preferences.created_at
	UpdatedAt          time.Time // user_preferences.updated_at
}
