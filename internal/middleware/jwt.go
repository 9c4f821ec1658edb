package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/steavenspr/auth-api-prototype/internal/logging"
	"github.com/steavenspr/auth-api-prototype/internal/service"
	"github.com/steavenspr/auth-api-prototype/internal/utils"
)

// authTimeout bounds the revocation lookup done while authenticating.
const authTimeout = 5 * time.Second

// Authenticator verifies a raw bearer token, including its revocation
// status.  service.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (utils.Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.  The scheme is matched case-insensitively.
func BearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(auth[len(prefix):])
	return raw, raw != ""
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the account id and the raw token into the request context.
// Handlers read them with AccountID and RawToken.  Revoked tokens are
// rejected here, not only in the handlers.  A missing token gets the same
// response as an invalid one.
func JWTAuth(auth Authenticator, log *slog.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = logging.Discard()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c)
			if !ok {
				return invalidToken(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
			claims, err := auth.Authenticate(ctx, raw)
			cancel()
			if err != nil {
				if errors.Is(err, service.ErrInvalidToken) {
					return invalidToken(c)
				}
				logging.LogError(log, "authenticate", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"error":   "store_error",
					"message": "internal error",
				})
			}

			c.Set(ContextAccountID, claims.AccountID)
			c.Set(ContextToken, raw)
			return next(c)
		}
	}
}

func invalidToken(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error":   "invalid_token",
		"message": "invalid token",
	})
}
