package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/steavenspr/auth-api-prototype/internal/logging"
	"github.com/steavenspr/auth-api-prototype/internal/service"
)

// writeError maps a service error kind to a status code and a stable
// {"error", "message"} body.  Unexpected errors are logged and reported
// without detail.
func writeError(c echo.Context, log *slog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrValidationFailed):
		body := echo.Map{
			"error":   "validation_failed",
			"message": "The given data was invalid.",
		}
		if fields, ok := service.FieldErrors(err); ok {
			body["fields"] = fields.Map()
		}
		return c.JSON(http.StatusUnprocessableEntity, body)
	case errors.Is(err, service.ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "duplicate_email",
			"message": "The email has already been taken.",
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error":   "invalid_credentials",
			"message": "invalid credentials",
		})
	case errors.Is(err, service.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error":   "invalid_token",
			"message": "invalid token",
		})
	case errors.Is(err, service.ErrAccountNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error":   "account_not_found",
			"message": "account not found",
		})
	case errors.Is(err, service.ErrStore):
		logging.LogError(log, "store failure", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "store_error",
			"message": "internal error",
		})
	}
	logging.LogError(log, "request failed", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error":   "internal_error",
		"message": "internal error",
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}
