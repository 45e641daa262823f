package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/shop-admin/internal/service"
)

type AnalyticsHTTP struct {
	Svc *service.AnalyticsService
}

func (h *AnalyticsHTTP) Dashboard(c echo.Context) error {
	stats, err := h.Svc.Dashboard(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, stats)
}

func (h *AnalyticsHTTP) Sales(c echo.Context) error {
	months, _ := strconv.Atoi(c.QueryParam("months"))

	series, err := h.Svc.SalesByMonth(c.Request().Context(), months)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, series)
}

func (h *AnalyticsHTTP) TopProducts(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	rows, err := h.Svc.TopProducts(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, rows)
}
