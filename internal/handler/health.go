package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running. It returns a
// plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// HealthHandler reports per-component status for the detailed health page.
// RDB may be nil when Redis was unreachable at startup.
type HealthHandler struct {
	DB  *sql.DB
	RDB *redis.Client
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{DB: db, RDB: rdb}
}

// Detailed pings each backing service with a short deadline and reports
// component statuses. The endpoint answers 200 even when a component is
// down so monitors can read the body; overall status says "degraded".
func (h *HealthHandler) Detailed(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	components := echo.Map{}
	overall := "healthy"

	if err := h.DB.PingContext(ctx); err != nil {
		components["database"] = "unreachable"
		overall = "degraded"
	} else {
		components["database"] = "ok"
	}

	if h.RDB == nil {
		components["redis"] = "disabled"
	} else if err := h.RDB.Ping(ctx).Err(); err != nil {
		components["redis"] = "unreachable"
		overall = "degraded"
	} else {
		components["redis"] = "ok"
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":     overall,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
