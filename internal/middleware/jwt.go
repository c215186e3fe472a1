package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/moviesvault/movies-vault/internal/model"
	"github.com/moviesvault/movies-vault/internal/utils"
)

// TokenBlacklist is the slice of the revocation registry the middleware
// needs: a membership check, nothing more.
type TokenBlacklist interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// UserResolver resolves a token subject back to a live account.
type UserResolver interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// JWTAuth returns an Echo middleware that authenticates a Bearer access
// token and injects the caller's identity into the request context under
// "user_id", "username" and "is_staff".
//
// Validation short-circuits in a fixed order: signature, expiry, blacklist
// membership, then subject resolution (the account must still exist and be
// active). Only when a step's backing store fails does the request become a
// 500; every rejection is a 401.
func JWTAuth(secret string, blacklist TokenBlacklist, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseToken(secret, raw)
			if err != nil {
				if err == utils.ErrTokenExpired {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			// Refresh tokens are only accepted by the refresh endpoint.
			if claims.TokenType != utils.TokenTypeAccess {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			revoked, err := blacklist.IsRevoked(ctx, raw)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token check failed"})
			}
			if revoked {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
			}

			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				if err == sql.ErrNoRows {
					// The subject no longer exists; the token outlived its account.
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
			}
			if !u.IsActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
			}

			c.Set("user_id", u.ID)
			c.Set("username", u.Username)
			c.Set("is_staff", u.IsStaff)
			return next(c)
		}
	}
}
