// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let handlers distinguish failure
// scenarios without inspecting driver-specific errors. Not-found is
// signalled by database/sql's ErrNoRows, which passes through the
// repositories unchanged.
package repository

import "errors"

// ErrUsernameExists is returned when an insert violates the unique
// username index. The index, not the handler's pre-check, is the
// authority on uniqueness under concurrent registration.
var ErrUsernameExists = errors.New("username already exists")

// ErrEmailExists is returned when an insert violates the unique email
// index.
var ErrEmailExists = errors.New("email already exists")

// ErrMovieInWatchlist is returned when adding a movie the user already has
// on their watchlist. Handlers should translate this into an HTTP 400.
var ErrMovieInWatchlist = errors.New("movie already in watchlist")
