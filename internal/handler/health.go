package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers GET /healthz with a bare 200 "ok".  Deployment checks
// for the diagnostics API hit this before routing traffic.  It touches
// neither MySQL nor Redis, so it only reports process liveness.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
