package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// AdminHandler exposes operational endpoints restricted to staff accounts.
type AdminHandler struct {
	Tokens TokenBlacklist
}

func NewAdminHandler(t TokenBlacklist) *AdminHandler {
	return &AdminHandler{Tokens: t}
}

// PurgeBlacklist deletes blacklist records whose expiry has passed. The
// operation is idempotent and safe to invoke repeatedly; records still in
// their validity window are never touched.
func (h *AdminHandler) PurgeBlacklist(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	n, err := h.Tokens.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "purge failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"purged": n})
}
