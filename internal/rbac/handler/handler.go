package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func respondError(c echo.Context, err error) error {
	code, body := httpError(err)
	return c.JSON(code, body)
}

func respondBadRequest(c echo.Context, msg string) error {
	code, body := badRequest(msg)
	return c.JSON(code, body)
}
