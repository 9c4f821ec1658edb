package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/steavenspr/auth-api-prototype/internal/logging"
	"github.com/steavenspr/auth-api-prototype/internal/middleware"
	"github.com/steavenspr/auth-api-prototype/internal/model"
	"github.com/steavenspr/auth-api-prototype/internal/service"
	"github.com/steavenspr/auth-api-prototype/internal/utils"
)

// requestTimeout bounds the store round-trips of a single request.
const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
	Log  *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = logging.Discard()
	}
	return &AuthHandler{Auth: auth, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}
type authResp struct {
	User  model.UserView `json:"user"`
	Token tokenPart      `json:"token"`
}
type userResp struct {
	User model.UserView `json:"user"`
}

func newAuthResp(u model.User, t utils.Token) authResp {
	return authResp{
		User:  u.View(),
		Token: tokenPart{Token: t.Value, TokenType: "Bearer", ExpiresAt: t.ExpiresAt},
	}
}

// Register: create the account and return a token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.TrimSpace(req.Email)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, tok, err := h.Auth.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, newAuthResp(u, tok))
}

// Login: verify credentials and return a new token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.TrimSpace(req.Email)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, tok, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newAuthResp(u, tok))
}

// Me: the account bound to the presented token (protected).
func (h *AuthHandler) Me(c echo.Context) error {
	raw, ok := middleware.RawToken(c)
	if !ok {
		raw, _ = middleware.BearerToken(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Auth.CurrentAccount(ctx, raw)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, userResp{User: u.View()})
}

// Logout: revoke the presented token (protected).  Repeating the call with
// the same token still succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, ok := middleware.RawToken(c)
	if !ok {
		raw, _ = middleware.BearerToken(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, raw); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}
