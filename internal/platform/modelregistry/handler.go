package modelregistry

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StatusHandler lists every declared model and whether it is loaded.
func StatusHandler(r *FileRegistry) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"data": r.Statuses()})
	}
}

// WarmHandler retries loading every declared model and reports the result.
func WarmHandler(r *FileRegistry) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"data": r.Warm(c.Request().Context())})
	}
}
