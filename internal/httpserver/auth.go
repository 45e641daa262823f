package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/avolkov/shop-admin/internal/middleware/auth"
	"github.com/avolkov/shop-admin/internal/service"
	"github.com/avolkov/shop-admin/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		return respondError(c, err)
	}

	return respondData(c, http.StatusCreated, transport.NewUserSummary(user))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	token, user, err := h.Svc.Login(ctx, req)
	if err != nil {
		return respondError(c, err)
	}

	return respondData(c, http.StatusOK, transport.AuthResponse{
		Token: token,
		User:  transport.NewUserSummary(user),
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	user, err := h.Svc.Me(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}

	return respondData(c, http.StatusOK, transport.NewUserSummary(user))
}
