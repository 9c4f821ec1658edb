package middleware

// identity.go defines the context keys set by JWTAuth and helpers to read
// them back in handlers and other middleware.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Echo context keys populated by JWTAuth.
const (
	ContextAccountID = "account_id"
	ContextToken     = "token"
)

// AccountID returns the authenticated account id, or false when the request
// did not pass through JWTAuth.
func AccountID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ContextAccountID).(uint64)
	return id, ok && id != 0
}

// RawToken returns the bearer token accepted by JWTAuth.
func RawToken(c echo.Context) (string, bool) {
	tok, ok := c.Get(ContextToken).(string)
	return tok, ok && tok != ""
}

// identity renders the caller for cache keys; "anon" when unauthenticated.
func identity(c echo.Context) string {
	if id, ok := AccountID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
