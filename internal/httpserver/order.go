package httpserver

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	authmw "github.com/avolkov/shop-admin/internal/middleware/auth"
	"github.com/avolkov/shop-admin/internal/models"
	"github.com/avolkov/shop-admin/internal/mykafka"
	"github.com/avolkov/shop-admin/internal/service"
	"github.com/avolkov/shop-admin/internal/transport"
)

type OrderHTTP struct {
	Svc      *service.OrderService
	Producer *mykafka.Producer
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.CreateOrder(ctx, req, userID)
	if err != nil {
		return respondError(c, err)
	}

	publish(c, h.Producer, mykafka.TopicOrderEvents, order.ID.String(), map[string]any{
		"type":         "order_created",
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"customer_id":  order.CustomerID,
		"total":        order.Total,
	})

	return respondData(c, http.StatusCreated, transport.NewOrderResponse(order))
}

func (h *OrderHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	opts := service.OrderListOptions{
		Page:   page,
		Limit:  limit,
		Search: c.QueryParam("search"),
		SortBy: c.QueryParam("sort_by"),
		Order:  c.QueryParam("order"),
		Status: c.QueryParam("status"),
	}
	if raw := c.QueryParam("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid customer_id")
		}
		opts.CustomerID = id
	}

	total, orders, err := h.Svc.GetOrders(ctx, opts, userID, authmw.IsAdmin(c))
	if err != nil {
		return respondError(c, err)
	}

	return respondPage(c, transport.NewOrderResponses(orders), page, limit, total)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.Svc.GetOrder(ctx, id, userID, authmw.IsAdmin(c))
	if err != nil {
		return respondError(c, err)
	}

	return respondData(c, http.StatusOK, transport.NewOrderResponse(order))
}

func (h *OrderHTTP) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req transport.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateOrderStatus(ctx, id, req.Status, authmw.IsAdmin(c))
	if err != nil {
		return respondError(c, err)
	}

	publish(c, h.Producer, mykafka.TopicOrderEvents, order.ID.String(), map[string]any{
		"type":         "order_status_updated",
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"status":       order.Status,
	})

	return respondData(c, http.StatusOK, transport.NewOrderResponse(order))
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.Svc.CancelOrder(ctx, id, userID, authmw.IsAdmin(c))
	if err != nil {
		return respondError(c, err)
	}

	publish(c, h.Producer, mykafka.TopicOrderEvents, order.ID.String(), map[string]any{
		"type":         "order_cancelled",
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"status":       models.OrderStatusCancelled,
	})

	return respondData(c, http.StatusOK, transport.NewOrderResponse(order))
}
