package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/shop-admin/internal/logging"
	"github.com/avolkov/shop-admin/internal/mykafka"
	"github.com/avolkov/shop-admin/internal/service"
	"github.com/avolkov/shop-admin/internal/transport"
	"github.com/avolkov/shop-admin/internal/util"
)

func respondData(c echo.Context, code int, data any) error {
	return c.JSON(code, transport.Response{Success: true, Data: data})
}

func respondMessage(c echo.Context, code int, message string) error {
	return c.JSON(code, transport.Response{Success: true, Message: message})
}

func respondPage(c echo.Context, data any, page, limit int, total int64) error {
	_, limit = util.Calculate(page, limit)
	if page < 1 {
		page = 1
	}
	return c.JSON(http.StatusOK, transport.Response{
		Success: true,
		Data:    data,
		Pagination: &transport.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
		},
	})
}

// respondError maps the service error taxonomy onto HTTP codes. Unknown
// errors become an opaque 500 so internals never leak to clients.
func respondError(c echo.Context, err error) error {
	var stockErr *service.StockUnavailableError
	if errors.As(err, &stockErr) {
		return c.JSON(http.StatusBadRequest, transport.Response{
			Success: false,
			Error:   "stock unavailable",
			Details: stockErr.Problems,
		})
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidTransition):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		code, msg = http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, service.ErrForbidden):
		code, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrNotFound):
		code, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict):
		code, msg = http.StatusConflict, err.Error()
	}

	if code == http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("request failed", "error", err)
	}

	return c.JSON(code, transport.Response{Success: false, Error: msg})
}

// publish sends a domain event without failing the request when the broker
// is down or not configured.
func publish(c echo.Context, producer *mykafka.Producer, topic, key string, event map[string]any) {
	if producer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := producer.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("event publish failed", "topic", topic, "error", err)
	}
}
