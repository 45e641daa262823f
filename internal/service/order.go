package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/shop-admin/internal/logging"
	"github.com/avolkov/shop-admin/internal/models"
	"github.com/avolkov/shop-admin/internal/repo"
	"github.com/avolkov/shop-admin/internal/transport"
	"github.com/avolkov/shop-admin/internal/util"
)

type OrderService struct {
	Repo *repo.GormRepo

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var orderSortColumns = map[string]string{
	"created_at":   "created_at",
	"createdAt":    "created_at",
	"total":        "total",
	"status":       "status",
	"order_number": "order_number",
	"orderNumber":  "order_number",
}

type OrderListOptions struct {
	Page       int
	Limit      int
	Search     string
	SortBy     string
	Order      string // "asc" or "desc"
	Status     string
	CustomerID uuid.UUID // admin-only override
}

// CreateOrder validates availability of every requested item, snapshots
// prices, and persists the order together with the stock decrement in one
// transaction. Either everything is recorded or nothing is.
func (s *OrderService) CreateOrder(ctx context.Context, req transport.CreateOrderRequest, customerID uuid.UUID) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.create")

	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	for _, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
	}
	if err := validateShippingAddress(req.ShippingAddress); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	seen := make(map[uuid.UUID]struct{}, len(req.Items))
	for _, item := range req.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := s.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(products) != len(ids) {
		return nil, fmt.Errorf("%w: one or more products do not exist", ErrNotFound)
	}

	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	// Collect every availability problem before failing, so the caller can
	// show the full list instead of one error at a time.
	var problems []string
	var total int64
	items := make([]models.OrderItem, 0, len(req.Items))

	for _, reqItem := range req.Items {
		product := byID[reqItem.ProductID]

		if product.Stock < reqItem.Quantity {
			problems = append(problems, fmt.Sprintf(
				"%s: insufficient stock (available: %d, requested: %d)",
				product.Name, product.Stock, reqItem.Quantity,
			))
		}
		if product.Status == models.ProductStatusOutOfStock || product.Status == models.ProductStatusInactive {
			problems = append(problems, fmt.Sprintf("%s: product is not available", product.Name))
		}

		total += product.Price * int64(reqItem.Quantity)
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Quantity:  reqItem.Quantity,
			Price:     product.Price,
		})
	}

	if len(problems) > 0 {
		return nil, &StockUnavailableError{Problems: problems}
	}

	order := &models.Order{
		CustomerID:         customerID,
		Status:             models.OrderStatusPending,
		Total:              total,
		ShippingStreet:     req.ShippingAddress.Street,
		ShippingCity:       req.ShippingAddress.City,
		ShippingState:      req.ShippingAddress.State,
		ShippingPostalCode: req.ShippingAddress.PostalCode,
		ShippingCountry:    req.ShippingAddress.Country,
		Items:              items,
	}

	if err := s.createNumbered(ctx, order); err != nil {
		var stockErr *StockUnavailableError
		if errors.As(err, &stockErr) {
			return nil, err
		}
		l.Error("create_order_failed", "error", err)
		return nil, err
	}

	l.Info("order_created", "order_number", order.OrderNumber, "total", order.Total)
	return s.Repo.GetOrder(ctx, order.ID)
}

// createNumbered assigns an order number and persists the order. The number
// comes from a month-scoped count, which two concurrent checkouts can race
// to; the unique index on order_number catches the collision and the number
// is regenerated once before giving up with ErrConflict.
func (s *OrderService) createNumbered(ctx context.Context, order *models.Order) error {
	for attempt := 0; attempt < 2; attempt++ {
		number, err := s.generateOrderNumber(ctx)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		err = s.Repo.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if errors.Is(err, repo.ErrInsufficientStock) {
			// lost a concurrent-checkout race after prevalidation passed
			return &StockUnavailableError{Problems: []string{err.Error()}}
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			order.ID = uuid.Nil
			continue
		}
		return err
	}
	return fmt.Errorf("%w: order number collision", ErrConflict)
}

func (s *OrderService) generateOrderNumber(ctx context.Context) (string, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Second)

	count, err := s.Repo.CountOrdersBetween(ctx, start, end)
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(now, count+1), nil
}

// FormatOrderNumber renders the human-readable ORD-YYYYMM-NNNN form.
func FormatOrderNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%04d%02d-%04d", t.Year(), int(t.Month()), seq)
}

// GetOrders lists orders; non-admin callers are always scoped to their own
// orders no matter what customer filter they request.
func (s *OrderService) GetOrders(ctx context.Context, opts OrderListOptions, requestUserID uuid.UUID, isAdmin bool) (int64, []models.Order, error) {
	offset, limit := util.Calculate(opts.Page, opts.Limit)

	customerID := opts.CustomerID
	if !isAdmin {
		customerID = requestUserID
	}

	var status models.OrderStatus
	if opts.Status != "" {
		status = models.OrderStatus(opts.Status)
		if !status.Valid() {
			return 0, nil, fmt.Errorf("%w: unknown status %q", ErrValidation, opts.Status)
		}
	}

	sortBy, ok := orderSortColumns[opts.SortBy]
	if !ok {
		sortBy = "created_at"
	}

	return s.Repo.ListOrders(ctx, repo.OrderFilter{
		Offset:     offset,
		Limit:      limit,
		Search:     opts.Search,
		SortBy:     sortBy,
		Desc:       opts.Order != "asc",
		Status:     status,
		CustomerID: customerID,
	})
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID, requestUserID uuid.UUID, isAdmin bool) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		return nil, err
	}

	if !isAdmin && order.CustomerID != requestUserID {
		return nil, fmt.Errorf("%w: not your order", ErrForbidden)
	}

	return order, nil
}

// UpdateOrderStatus lets an admin force any status onto a non-terminal
// order. No forward-only ordering is enforced; only CANCELLED and DELIVERED
// are protected from further changes.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, isAdmin bool) (*models.Order, error) {
	if !isAdmin {
		return nil, fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		return nil, err
	}

	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}

	if err := s.Repo.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_status_updated",
		"order_number", order.OrderNumber, "from", order.Status, "to", status)
	return s.Repo.GetOrder(ctx, id)
}

// CancelOrder reverses the stock effect of createOrder and marks the order
// CANCELLED. Only PENDING and PROCESSING orders can be cancelled.
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID, requestUserID uuid.UUID, isAdmin bool) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		return nil, err
	}

	if !isAdmin && order.CustomerID != requestUserID {
		return nil, fmt.Errorf("%w: not your order", ErrForbidden)
	}

	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusProcessing {
		return nil, fmt.Errorf("%w: cannot cancel a %s order", ErrInvalidTransition, order.Status)
	}

	if err := s.Repo.CancelOrder(ctx, order); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_cancelled", "order_number", order.OrderNumber)
	return s.Repo.GetOrder(ctx, id)
}

func validateShippingAddress(addr transport.ShippingAddress) error {
	if addr.Street == "" {
		return fmt.Errorf("%w: shipping street required", ErrValidation)
	}
	if addr.City == "" {
		return fmt.Errorf("%w: shipping city required", ErrValidation)
	}
	if addr.State == "" {
		return fmt.Errorf("%w: shipping state required", ErrValidation)
	}
	if addr.PostalCode == "" {
		return fmt.Errorf("%w: shipping postal code required", ErrValidation)
	}
	if addr.Country == "" {
		return fmt.Errorf("%w: shipping country required", ErrValidation)
	}
	return nil
}
