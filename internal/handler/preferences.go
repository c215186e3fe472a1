package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/moviesvault/movies-vault/internal/model"
	"github.com/moviesvault/movies-vault/internal/repository"
)

// PreferencesStore is the preferences repository as the handler sees it.
type PreferencesStore interface {
	GetByUserID(ctx context.Context, userID string) (model.UserPreferences, error)
	Update(ctx context.Context, userID string, p repository.PreferencesUpdate) error
}

// PreferencesHandler serves the per-user recommendation preferences.
type PreferencesHandler struct {
	Prefs PreferencesStore
}

func NewPreferencesHandler(p PreferencesStore) *PreferencesHandler {
	return &PreferencesHandler{Prefs: p}
}

type preferencesPayload struct {
	PreferredGenres    []string  `json:"preferred_genres"`
	PreferredLanguages []string  `json:"preferred_languages"`
	MinRating          float64   `json:"min_rating"`
	IncludeAdult       bool      `json:"include_adult"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toPreferencesPayload(p model.UserPreferences) preferencesPayload {
	return preferencesPayload{
		PreferredGenres:    p.PreferredGenres,
		PreferredLanguages: p.PreferredLanguages,
		MinRating:          p.MinRating,
		IncludeAdult:       p.IncludeAdult,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// Get returns the authenticated user's preferences. The record always
// exists: registration creates it in the same transaction as the user.
func (h *PreferencesHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Prefs.GetByUserID(ctx, currentUserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch preferences"})
	}
	return c.JSON(http.StatusOK, echo.Map{"preferences": toPreferencesPayload(p)})
}

type preferencesPatchReq struct {
	PreferredGenres    *[]string `json:"preferred_genres"`
	PreferredLanguages *[]string `json:"preferred_languages"`
	MinRating          *float64  `json:"min_rating"`
	IncludeAdult       *bool     `json:"include_adult"`
}

// Update applies a partial preferences update and returns the new state.
func (h *PreferencesHandler) Update(c echo.Context) error {
	var req preferencesPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.MinRating != nil && (*req.MinRating < 0 || *req.MinRating > 10) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "min_rating must be between 0 and 10"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid := currentUserID(c)
	err := h.Prefs.Update(ctx, uid, repository.PreferencesUpdate{
		PreferredGenres:    req.PreferredGenres,
		PreferredLanguages: req.PreferredLanguages,
		MinRating:          req.MinRating,
		IncludeAdult:       req.IncludeAdult,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update preferences"})
	}

	p, err := h.Prefs.GetByUserID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch preferences"})
	}
	return c.JSON(http.StatusOK, echo.Map{"preferences": toPreferencesPayload(p)})
}
