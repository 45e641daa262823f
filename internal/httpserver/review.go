package httpserver

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	authmw "github.com/avolkov/shop-admin/internal/middleware/auth"
	"github.com/avolkov/shop-admin/internal/mykafka"
	"github.com/avolkov/shop-admin/internal/service"
	"github.com/avolkov/shop-admin/internal/transport"
)

type ReviewHTTP struct {
	Svc      *service.ReviewService
	Producer *mykafka.Producer
}

func (h *ReviewHTTP) CreateReview(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req transport.CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	review, err := h.Svc.CreateReview(ctx, req, userID)
	if err != nil {
		return respondError(c, err)
	}

	publish(c, h.Producer, mykafka.TopicReviewEvents, review.ID.String(), map[string]any{
		"type":       "review_created",
		"review_id":  review.ID,
		"product_id": review.ProductID,
		"rating":     review.Rating,
	})

	return respondData(c, http.StatusCreated, review)
}

func (h *ReviewHTTP) GetProductReviews(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	total, reviews, err := h.Svc.GetProductReviews(ctx, productID, page, limit,
		c.QueryParam("status"), authmw.IsAdmin(c))
	if err != nil {
		return respondError(c, err)
	}

	return respondPage(c, reviews, page, limit, total)
}

func (h *ReviewHTTP) ModerateReview(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid review id")
	}

	var req transport.ModerateReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	review, err := h.Svc.ModerateReview(ctx, id, req.Status, authmw.IsAdmin(c))
	if err != nil {
		return respondError(c, err)
	}

	publish(c, h.Producer, mykafka.TopicReviewEvents, review.ID.String(), map[string]any{
		"type":      "review_moderated",
		"review_id": review.ID,
		"status":    review.Status,
	})

	return respondData(c, http.StatusOK, review)
}

func (h *ReviewHTTP) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid review id")
	}

	if err := h.Svc.DeleteReview(ctx, id, userID, authmw.IsAdmin(c)); err != nil {
		return respondError(c, err)
	}

	return respondMessage(c, http.StatusOK, "review deleted")
}
