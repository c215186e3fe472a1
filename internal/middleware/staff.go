package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireStaff restricts a route to accounts with the staff flag set. It
// assumes JWTAuth already ran and stored "is_staff" in the context; missing
// or non-boolean values are treated as not staff.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			staff, ok := c.Get("is_staff").(bool)
			if !ok || !staff {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
