package handler // handler defines http handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health is a plain liveness endpoint used by load balancers and
// monitoring systems.  It does not touch the database or object store.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
