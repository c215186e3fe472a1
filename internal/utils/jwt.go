package utils // package utils provides helpers for token creation, parsing and hashing

import (
	"crypto/sha256" // SHA-256 hashing for blacklist lookups
	"encoding/hex"  // hex encoding of digests
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Token type claim values. Access tokens authenticate individual requests;
// refresh tokens are only accepted by the refresh endpoint.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrTokenInvalid is returned when a token fails signature verification or
// is otherwise malformed.
var ErrTokenInvalid = errors.New("token invalid")

// ErrTokenExpired is returned when a structurally valid token is past its
// exp claim. Parsing checks the signature first, then expiry.
var ErrTokenExpired = errors.New("token expired")

// SignedToken couples a serialized JWT with its expiration time so callers
// can echo the expiry back to clients without re-parsing the token.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims is the decoded payload of an access or refresh token. Both token
// kinds carry the same claim set; TokenType tells them apart.
type Claims struct {
	UserID    string // sub claim: opaque user id
	Username  string // username claim
	TokenType string // token_type claim: "access" or "refresh"
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// NewAccessToken builds and signs a short-lived HS256 JWT for a user.
func NewAccessToken(secret, userID, username string, ttlMin int) (SignedToken, error) {
	return newSignedToken(secret, userID, username, TokenTypeAccess,
		time.Duration(ttlMin)*time.Minute)
}

// NewRefreshToken builds and signs a long-lived HS256 JWT used to mint new
// token pairs. Unlike access tokens its lifetime is measured in days.
func NewRefreshToken(secret, userID, username string, ttlDays int) (SignedToken, error) {
	return newSignedToken(secret, userID, username, TokenTypeRefresh,
		time.Duration(ttlDays)*24*time.Hour)
}

func newSignedToken(secret, userID, username, tokenType string, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":        userID,
		"username":   username,
		"token_type": tokenType,
		"exp":        exp.Unix(),
		"iat":        now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseToken verifies the signature and expiry of a serialized JWT and
// returns its claims. It rejects tokens signed with anything other than
// HMAC. Signature failures come back as ErrTokenInvalid, expiry as
// ErrTokenExpired; blacklist membership and subject resolution are the
// caller's concern.
func ParseToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}

	var c Claims
	if sub, ok := mc["sub"].(string); ok {
		c.UserID = sub
	}
	if name, ok := mc["username"].(string); ok {
		c.Username = name
	}
	if tt, ok := mc["token_type"].(string); ok {
		c.TokenType = tt
	}
	if exp, ok := mc["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	if iat, ok := mc["iat"].(float64); ok {
		c.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if c.UserID == "" {
		return Claims{}, ErrTokenInvalid
	}
	return c, nil
}

// HashTokenRaw returns the SHA-256 hash of a raw token as a hex string.
// The blacklist table indexes this digest because JWTs are too long for a
// unique index on the raw text.
func HashTokenRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
