package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/moviesvault/movies-vault/internal/model"
	"github.com/moviesvault/movies-vault/internal/utils"
)

// DefaultBlacklistTTL is how long a revoked token stays on record when the
// caller cannot supply the token's own expiry (e.g. the token would not
// parse). Matches the refresh token lifetime so no revocation outlives its
// usefulness by much.
const DefaultBlacklistTTL = 7 * 24 * time.Hour

// BlacklistRepo persists tokens that must be rejected despite carrying a
// valid signature and expiry. Only revoked tokens get rows; a token that
// was never revoked has no presence here.
type BlacklistRepo struct{ DB *sql.DB }

func NewBlacklistRepo(db *sql.DB) *BlacklistRepo { return &BlacklistRepo{DB: db} }

// Revoke records a token as blacklisted and returns the stored row. A zero
// expiresAt defaults to now + DefaultBlacklistTTL. Revoking an already
// revoked token is a no-op that returns the existing record: the upsert on
// the token_hash unique index means two concurrent revokes both succeed
// and leave exactly one row.
func (r *BlacklistRepo) Revoke(ctx context.Context, token string, expiresAt time.Time) (model.BlacklistedToken, error) {
	if expiresAt.IsZero() {
		expiresAt = time.Now().UTC().Add(DefaultBlacklistTTL)
	}
	hash := utils.HashTokenRaw(token)
	// ON DUPLICATE KEY UPDATE id=id keeps the original row (and its
	// blacklisted_at / expires_at) untouched on repeat revocations.
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO blacklisted_tokens (token, token_hash, expires_at) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE id=id`,
		token, hash, expiresAt)
	if err != nil {
		return model.BlacklistedToken{}, err
	}
	return r.getByHash(ctx, hash)
}

func (r *BlacklistRepo) getByHash(ctx context.Context, hash string) (model.BlacklistedToken, error) {
	var t model.BlacklistedToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, token, token_hash, blacklisted_at, expires_at FROM blacklisted_tokens WHERE token_hash=? LIMIT 1",
		hash).Scan(&t.ID, &t.Token, &t.TokenHash, &t.BlacklistedAt, &t.ExpiresAt)
	return t, err
}

// IsRevoked reports whether a token has been blacklisted. Pure lookup, no
// side effects; the JWT middleware consults this on every protected
// request.
func (r *BlacklistRepo) IsRevoked(ctx context.Context, token string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM blacklisted_tokens WHERE token_hash=? LIMIT 1",
		utils.HashTokenRaw(token)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired deletes records whose expiry is strictly before now and
// returns the number removed. The strict comparison means a concurrent
// Revoke of a still-valid token can never be swept away. Safe to run
// repeatedly and concurrently.
func (r *BlacklistRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM blacklisted_tokens WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
