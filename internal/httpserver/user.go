package httpserver

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	authmw "github.com/avolkov/shop-admin/internal/middleware/auth"
	"github.com/avolkov/shop-admin/internal/service"
	"github.com/avolkov/shop-admin/internal/transport"
)

type UserHTTP struct {
	Svc *service.UserService
}

func (h *UserHTTP) GetUsers(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	total, users, err := h.Svc.GetUsers(ctx, service.UserListOptions{
		Page:   page,
		Limit:  limit,
		Search: c.QueryParam("search"),
		SortBy: c.QueryParam("sort_by"),
		Order:  c.QueryParam("order"),
		Role:   c.QueryParam("role"),
	})
	if err != nil {
		return respondError(c, err)
	}

	summaries := make([]*transport.UserSummary, 0, len(users))
	for i := range users {
		summaries = append(summaries, transport.NewUserSummary(&users[i]))
	}

	return respondPage(c, summaries, page, limit, total)
}

func (h *UserHTTP) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	user, err := h.Svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, transport.NewUserSummary(user))
}

func (h *UserHTTP) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()

	requestUserID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var req transport.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.UpdateUser(ctx, id, req, requestUserID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, transport.NewUserSummary(user))
}
