package handler

import (
	"context"      // context with cancellation for DB calls
	"database/sql" // sentinel ErrNoRows
	"log"
	"net/http" // HTTP status codes
	"strings"      // input trimming
	"time"         // timeouts for DB calls
	"unicode/utf8" // character counting for length validation

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/moviesvault/movies-vault/internal/config"
	"github.com/moviesvault/movies-vault/internal/model"
	"github.com/moviesvault/movies-vault/internal/queue"
	"github.com/moviesvault/movies-vault/internal/repository"
	queue_publisher "github.com/moviesvault/movies-vault/internal/service"
	"github.com/moviesvault/movies-vault/internal/utils"
)

// UserStore is the slice of the user repository the auth handlers need.
// Declared here so tests can substitute an in-memory implementation.
type UserStore interface {
	Create(ctx context.Context, p repository.CreateUserParams, cost int) (string, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	TouchLastLogin(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id string, p repository.ProfileUpdate) error
	UpdatePassword(ctx context.Context, id, newPassword string, cost int) error
}

// TokenBlacklist is the revocation registry as the handlers see it.
type TokenBlacklist interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) (model.BlacklistedToken, error)
	IsRevoked(ctx context.Context, token string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenBlacklist
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenBlacklist) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	Refresh string `json:"refresh"`
}

type userPayload struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Bio            string     `json:"bio"`
	ProfilePicture string     `json:"profile_picture"`
	DateOfBirth    *string    `json:"date_of_birth"`
	FavoriteGenres []string   `json:"favorite_genres"`
	IsActive       bool       `json:"is_active"`
	LastLogin      *time.Time `json:"last_login"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type authResp struct {
	User    userPayload `json:"user"`
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	Message string      `json:"message,omitempty"`
}

func toUserPayload(u model.User) userPayload {
	p := userPayload{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		FavoriteGenres: u.FavoriteGenres,
		IsActive:       u.IsActive,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if u.DateOfBirth != nil {
		s := u.DateOfBirth.Format("2006-01-02")
		p.DateOfBirth = &s
	}
	return p
}

// issuePair mints an access/refresh token pair for a user.
func (h *AuthHandler) issuePair(u model.User) (utils.SignedToken, utils.SignedToken, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Username, h.Cfg.AccessTTLMin)
	if err != nil {
		return utils.SignedToken{}, utils.SignedToken{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, u.Username, h.Cfg.RefreshTTLDays)
	if err != nil {
		return utils.SignedToken{}, utils.SignedToken{}, err
	}
	return access, refresh, nil
}

// Register: create user (plus default preferences, atomically) and return
// tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username is required."})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password is required."})
	}
	// Length limits count characters, not bytes, so multibyte usernames
	// and passwords are measured the way users perceive them.
	if utf8.RuneCountInString(req.Username) < 3 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username must be at least 3 characters long."})
	}
	if utf8.RuneCountInString(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password must be at least 8 characters long."})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// The unique index is the real authority on duplicates; Create maps a
	// duplicate-key insert to the same error, so a racing registration
	// cannot slip past this pre-check.
	uid, err := h.Users.Create(ctx, repository.CreateUserParams{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, h.Cfg.BcryptCost)
	if err != nil {
		switch err {
		case repository.ErrUsernameExists:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username already exists. Please choose a different username."})
		case repository.ErrEmailExists:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email already exists. Please use a different email."})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Registration failed"})
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Registration failed"})
	}

	access, refresh, err := h.issuePair(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	_ = queue_publisher.PublishUserActivity(ctx, queue.UserActivityEvent{
		Kind:       queue.EventUserRegistered,
		UserID:     u.ID,
		Username:   u.Username,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, authResp{
		User:    toUserPayload(u),
		Access:  access.Token,
		Refresh: refresh.Token,
		Message: "User registered successfully",
	})
}

// Login: verify credentials and return a new pair. The active check runs
// before the password comparison so a disabled account never learns
// whether its password was right.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Username is required."})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password is required."})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Username does not exist. Please check your username or sign up."})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Your account has been disabled. Please contact support."})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid password. Please check your password."})
	}

	if err := h.Users.TouchLastLogin(ctx, u.ID); err != nil {
		log.Printf("auth: touch last_login for %s failed: %v", u.ID, err)
	}

	access, refresh, err := h.issuePair(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	return c.JSON(http.StatusOK, authResp{
		User:    toUserPayload(u),
		Access:  access.Token,
		Refresh: refresh.Token,
		Message: "Login successful",
	})
}

// Logout blacklists the presented refresh token. It is deliberately
// fail-open: the client has already discarded its local tokens, so every
// outcome reports success and internal revocation failures are only
// logged. The access token still dies at its natural expiry.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.Refresh)
	if raw == "" {
		return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
	}

	// Reuse the token's own expiry for the blacklist record when it
	// parses; otherwise Revoke falls back to its default retention.
	var expiresAt time.Time
	if claims, err := utils.ParseToken(h.Cfg.JWTSecret, raw); err == nil {
		expiresAt = claims.ExpiresAt
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if _, err := h.Tokens.Revoke(ctx, raw, expiresAt); err != nil {
		log.Printf("auth: logout revoke failed (suppressed): %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
}

// Refresh exchanges a valid refresh token for a new pair. Whether the old
// refresh token is blacklisted after rotation is a config decision; the
// default keeps it alive until natural expiry.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Refresh) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh token required"})
	}
	raw := strings.TrimSpace(req.Refresh)

	claims, err := utils.ParseToken(h.Cfg.JWTSecret, raw)
	if err != nil {
		if err == utils.ErrTokenExpired {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token expired"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if claims.TokenType != utils.TokenTypeRefresh {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	revoked, err := h.Tokens.IsRevoked(ctx, raw)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token check failed"})
	}
	if revoked {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token revoked"})
	}

	u, err := h.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Your account has been disabled. Please contact support."})
	}

	access, refresh, err := h.issuePair(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	if h.Cfg.BlacklistAfterRotation {
		if _, err := h.Tokens.Revoke(ctx, raw, claims.ExpiresAt); err != nil {
			log.Printf("auth: blacklist rotated refresh token failed: %v", err)
		}
	}

	return c.JSON(http.StatusOK, authResp{
		User:    toUserPayload(u),
		Access:  access.Token,
		Refresh: refresh.Token,
	})
}
