package handler

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/moviesvault/movies-vault/internal/repository"
	"github.com/moviesvault/movies-vault/internal/utils"
)

// currentUserID reads the identity the JWT middleware stored in context.
func currentUserID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}

// Profile returns the authenticated user's full profile.
func (h *AuthHandler) Profile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, currentUserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch profile"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPayload(u)})
}

type profilePatchReq struct {
	Email          *string   `json:"email"`
	FirstName      *string   `json:"first_name"`
	LastName       *string   `json:"last_name"`
	Bio            *string   `json:"bio"`
	ProfilePicture *string   `json:"profile_picture"`
	DateOfBirth    *string   `json:"date_of_birth"` // YYYY-MM-DD
	FavoriteGenres *[]string `json:"favorite_genres"`
}

// UpdateProfile applies a partial update; absent fields stay untouched and
// id/created_at cannot be changed through this endpoint at all.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req profilePatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	patch := repository.ProfileUpdate{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
		FavoriteGenres: req.FavoriteGenres,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_of_birth must be YYYY-MM-DD"})
		}
		patch.DateOfBirth = &dob
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid := currentUserID(c)
	if err := h.Users.UpdateProfile(ctx, uid, patch); err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Email already exists. Please use a different email."})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update profile"})
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch profile"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPayload(u)})
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword verifies the old password against the stored hash before
// writing the new one. There is no path that stores a plaintext password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "old_password and new_password are required"})
	}
	if utf8.RuneCountInString(req.NewPassword) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password must be at least 8 characters long."})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid := currentUserID(c)
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid old password"})
	}
	if err := h.Users.UpdatePassword(ctx, uid, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update password failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed successfully"})
}
