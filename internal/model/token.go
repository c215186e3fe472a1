package model

import "time"

// BlacklistedToken models a row in the `blacklisted_tokens` table: a token
// that must be rejected even though its signature and expiry still check
// out, typically because the user logged out. Only revoked tokens are
// persisted; valid tokens leave no row behind.
//
// The raw token is kept for operator inspection, but uniqueness is enforced
// on TokenHash (SHA-256 hex of the raw string) since JWTs are too long for
// a MySQL unique index on the text itself.
//
// Fields:
//
//	ID            – primary key identifier.
//	Token         – the raw token string as presented at revocation time.
//	TokenHash     – SHA-256 hex digest of Token; unique.
//	BlacklistedAt – when the token was revoked.
//	ExpiresAt     – expiry copied from the token; rows are purgeable once
//	                this instant has passed.
type BlacklistedToken struct {
	ID            uint64    // blacklisted_tokens.id
	Token         string    // blacklisted_tokens.token
	TokenHash     string    // blacklisted_tokens.token_hash
	BlacklistedAt time.Time // blacklisted_tokens.blacklisted_at
	ExpiresAt     time.Time // blacklisted_tokens.expires_at
}
