package httpserver

import (
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/avolkov/shop-admin/internal/service/search"
	"github.com/avolkov/shop-admin/internal/transport"
	"github.com/avolkov/shop-admin/internal/util"
)

type SearchHTTP struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHTTP) SearchProducts(c echo.Context) error {
	if h.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	from, size := util.Calculate(page, limit)

	total, products, err := search.Search(c.Request().Context(), h.ES, h.Index, q, from, size)
	if err != nil {
		return respondError(c, err)
	}

	if page < 1 {
		page = 1
	}
	return c.JSON(http.StatusOK, transport.Response{
		Success: true,
		Data:    products,
		Pagination: &transport.Pagination{
			Page:       page,
			Limit:      size,
			Total:      total,
			TotalPages: util.TotalPages(total, size),
		},
	})
}
