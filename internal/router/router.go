package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/steavenspr/auth-api-prototype/internal/handler"
	"github.com/steavenspr/auth-api-prototype/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes under /v1/auth.
// register, login and logout are reachable without the JWT middleware:
// logout verifies the token itself so that a repeated logout with an
// already revoked token still succeeds.  /me requires a valid token.
// register inserts into users, so it goes through cache to purge cached
// listings; cache may be nil.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth middleware.Authenticator, cache echo.MiddlewareFunc, log *slog.Logger) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, optional(cache)...)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(auth, log))
}

// RegisterUsers registers CRUD routes for the users table under /v1/users.
// Every route requires a valid token; cache may be nil or a pass-through
// middleware when response caching is disabled.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, auth middleware.Authenticator, cache echo.MiddlewareFunc, log *slog.Logger) {
	g := e.Group("/v1/users", middleware.JWTAuth(auth, log))
	g.Use(optional(cache)...)
	g.GET("", u.List)
	g.GET("/:id", u.Get)
	g.PUT("/:id", u.Update)
	g.DELETE("/:id", u.Delete)
}

func optional(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}
