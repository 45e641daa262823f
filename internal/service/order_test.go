package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/shop-admin/internal/models"
	"github.com/avolkov/shop-admin/internal/repo"
	"github.com/avolkov/shop-admin/internal/transport"
)

func testShippingAddress() transport.ShippingAddress {
	return transport.ShippingAddress{
		Street:     "1 Main St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "US",
	}
}

func orderRequest(items ...transport.CreateOrderItem) transport.CreateOrderRequest {
	return transport.CreateOrderRequest{
		Items:           items,
		ShippingAddress: testShippingAddress(),
	}
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	widget := createTestProduct(t, r.DB, "Widget", 1500, 10, models.ProductStatusActive)
	gadget := createTestProduct(t, r.DB, "Gadget", 2000, 4, models.ProductStatusActive)

	order, err := svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: widget.ID, Quantity: 2},
		transport.CreateOrderItem{ProductID: gadget.ID, Quantity: 1},
	), customer.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, int64(2*1500+2000), order.Total)
	assert.Equal(t, customer.ID, order.CustomerID)
	assert.Equal(t, FormatOrderNumber(time.Now(), 1), order.OrderNumber)
	require.Len(t, order.Items, 2)

	assert.Equal(t, 8, reloadProduct(t, r.DB, widget.ID).Stock)
	assert.Equal(t, 3, reloadProduct(t, r.DB, gadget.ID).Stock)

	// the item keeps the price paid even after the catalog price changes
	require.NoError(t, r.DB.Model(widget).Update("price", 9999).Error)
	reloaded, err := svc.GetOrder(ctx, order.ID, customer.ID, false)
	require.NoError(t, err)
	for _, item := range reloaded.Items {
		if item.ProductID == widget.ID {
			assert.Equal(t, int64(1500), item.Price)
		}
	}
}

func TestCreateOrderStockSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	product := createTestProduct(t, r.DB, "Limited Widget", 1000, 5, models.ProductStatusActive)

	_, err := svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: product.ID, Quantity: 3},
	), customer.ID)
	require.NoError(t, err)
	p := reloadProduct(t, r.DB, product.ID)
	assert.Equal(t, 2, p.Stock)
	assert.Equal(t, models.ProductStatusActive, p.Status)

	_, err = svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: product.ID, Quantity: 2},
	), customer.ID)
	require.NoError(t, err)
	p = reloadProduct(t, r.DB, product.ID)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, models.ProductStatusOutOfStock, p.Status)

	_, err = svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: product.ID, Quantity: 1},
	), customer.ID)
	var stockErr *StockUnavailableError
	require.ErrorAs(t, err, &stockErr)
	require.NotEmpty(t, stockErr.Problems)
	assert.Contains(t, stockErr.Problems[0], "Limited Widget")
}

func TestCreateOrderAggregatesProblems(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	short := createTestProduct(t, r.DB, "Short Stock", 1000, 1, models.ProductStatusActive)
	inactive := createTestProduct(t, r.DB, "Retired", 500, 10, models.ProductStatusInactive)

	_, err := svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: short.ID, Quantity: 3},
		transport.CreateOrderItem{ProductID: inactive.ID, Quantity: 1},
	), customer.ID)

	var stockErr *StockUnavailableError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Problems, 2)
	assert.Equal(t, "Short Stock: insufficient stock (available: 1, requested: 3)", stockErr.Problems[0])
	assert.Equal(t, "Retired: product is not available", stockErr.Problems[1])

	// nothing was written
	var n int64
	require.NoError(t, r.DB.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, 1, reloadProduct(t, r.DB, short.ID).Stock)
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	product := createTestProduct(t, r.DB, "Widget", 1500, 10, models.ProductStatusActive)

	_, err := svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: product.ID, Quantity: 1},
		transport.CreateOrderItem{ProductID: uuid.New(), Quantity: 1},
	), customer.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrderValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	product := createTestProduct(t, r.DB, "Widget", 1500, 10, models.ProductStatusActive)

	noStreet := orderRequest(transport.CreateOrderItem{ProductID: product.ID, Quantity: 1})
	noStreet.ShippingAddress.Street = ""

	noCountry := orderRequest(transport.CreateOrderItem{ProductID: product.ID, Quantity: 1})
	noCountry.ShippingAddress.Country = ""

	cases := []struct {
		name string
		req  transport.CreateOrderRequest
	}{
		{"no items", orderRequest()},
		{"zero quantity", orderRequest(transport.CreateOrderItem{ProductID: product.ID, Quantity: 0})},
		{"negative quantity", orderRequest(transport.CreateOrderItem{ProductID: product.ID, Quantity: -1})},
		{"missing product id", orderRequest(transport.CreateOrderItem{Quantity: 1})},
		{"missing street", noStreet},
		{"missing country", noCountry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, tc.req, customer.ID)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestFormatOrderNumber(t *testing.T) {
	t.Parallel()

	march := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "ORD-202403-0003", FormatOrderNumber(march, 3))
	assert.Equal(t, "ORD-202412-0001", FormatOrderNumber(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), 1))
}

func TestOrderNumberSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	product := createTestProduct(t, r.DB, "Widget", 1500, 100, models.ProductStatusActive)

	first, err := svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: product.ID, Quantity: 1},
	), customer.ID)
	require.NoError(t, err)

	second, err := svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: product.ID, Quantity: 1},
	), customer.ID)
	require.NoError(t, err)

	now := time.Now()
	assert.Equal(t, FormatOrderNumber(now, 1), first.OrderNumber)
	assert.Equal(t, FormatOrderNumber(now, 2), second.OrderNumber)
}

func TestOrderNumberCollision(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	product := createTestProduct(t, r.DB, "Widget", 1500, 100, models.ProductStatusActive)

	// Seed orders that already hold the next two numbers the generator will
	// produce, but date them last month so the month-scoped count never sees
	// them. Both attempts then hit the unique index and the retry runs out.
	lastMonth := time.Now().AddDate(0, -1, 0)
	now := time.Now()
	for seq := int64(1); seq <= 2; seq++ {
		squatter := models.Order{
			CustomerID:  customer.ID,
			OrderNumber: FormatOrderNumber(now, seq),
			Status:      models.OrderStatusPending,
			Total:       100,
		}
		require.NoError(t, r.DB.Create(&squatter).Error)
		require.NoError(t, r.DB.Model(&squatter).Update("created_at", lastMonth).Error)
	}

	_, err := svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: product.ID, Quantity: 1},
	), customer.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateOrderRollsBackOnInsufficientStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	first := createTestProduct(t, r.DB, "First", 1000, 10, models.ProductStatusActive)
	second := createTestProduct(t, r.DB, "Second", 1000, 1, models.ProductStatusActive)

	// drive the repo directly so prevalidation cannot catch the shortage
	order := &models.Order{
		CustomerID:  customer.ID,
		OrderNumber: "ORD-209901-0001",
		Status:      models.OrderStatusPending,
		Total:       3000,
		Items: []models.OrderItem{
			{ProductID: first.ID, Quantity: 1, Price: 1000},
			{ProductID: second.ID, Quantity: 2, Price: 1000},
		},
	}
	err := r.CreateOrder(ctx, order)
	require.ErrorIs(t, err, repo.ErrInsufficientStock)

	// the whole transaction rolled back, including the first decrement
	var n int64
	require.NoError(t, r.DB.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Equal(t, 10, reloadProduct(t, r.DB, first.ID).Stock)
	assert.Equal(t, 1, reloadProduct(t, r.DB, second.ID).Stock)
}

func TestGetOrdersScoping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	alice := createTestUser(t, r.DB, "alice@example.com", models.RoleUser)
	bob := createTestUser(t, r.DB, "bob@example.com", models.RoleUser)
	admin := createTestUser(t, r.DB, "admin@example.com", models.RoleAdmin)
	product := createTestProduct(t, r.DB, "Widget", 1500, 100, models.ProductStatusActive)

	for i, customer := range []*models.User{alice, alice, bob} {
		_, err := svc.CreateOrder(ctx, orderRequest(
			transport.CreateOrderItem{ProductID: product.ID, Quantity: i + 1},
		), customer.ID)
		require.NoError(t, err)
	}

	// non-admin is always scoped to their own orders, even when asking for
	// somebody else's
	total, orders, err := svc.GetOrders(ctx, OrderListOptions{CustomerID: bob.ID}, alice.ID, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, o := range orders {
		assert.Equal(t, alice.ID, o.CustomerID)
	}

	total, _, err = svc.GetOrders(ctx, OrderListOptions{}, admin.ID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	total, orders, err = svc.GetOrders(ctx, OrderListOptions{CustomerID: bob.ID}, admin.ID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, bob.ID, orders[0].CustomerID)

	// search by customer email
	total, _, err = svc.GetOrders(ctx, OrderListOptions{Search: "BOB@"}, admin.ID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, _, err = svc.GetOrders(ctx, OrderListOptions{Status: "LOST"}, admin.ID, true)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetOrdersStatusFilterAndSort(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	product := createTestProduct(t, r.DB, "Widget", 1000, 100, models.ProductStatusActive)

	var shipped *models.Order
	for i := 1; i <= 3; i++ {
		o, err := svc.CreateOrder(ctx, orderRequest(
			transport.CreateOrderItem{ProductID: product.ID, Quantity: i},
		), customer.ID)
		require.NoError(t, err)
		if i == 2 {
			shipped = o
		}
	}
	require.NoError(t, r.UpdateOrderStatus(ctx, shipped.ID, models.OrderStatusShipped))

	total, orders, err := svc.GetOrders(ctx, OrderListOptions{Status: "SHIPPED"}, customer.ID, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, shipped.ID, orders[0].ID)

	_, orders, err = svc.GetOrders(ctx, OrderListOptions{SortBy: "total", Order: "asc"}, customer.ID, false)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, int64(1000), orders[0].Total)
	assert.Equal(t, int64(3000), orders[2].Total)

	// unknown sort column falls back to created_at instead of erroring
	_, orders, err = svc.GetOrders(ctx, OrderListOptions{SortBy: "password_hash"}, customer.ID, false)
	require.NoError(t, err)
	assert.Len(t, orders, 3)
}

func TestGetOrderAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	owner := createTestUser(t, r.DB, "owner@example.com", models.RoleUser)
	stranger := createTestUser(t, r.DB, "stranger@example.com", models.RoleUser)
	admin := createTestUser(t, r.DB, "admin@example.com", models.RoleAdmin)
	product := createTestProduct(t, r.DB, "Widget", 1500, 10, models.ProductStatusActive)

	order, err := svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: product.ID, Quantity: 1},
	), owner.ID)
	require.NoError(t, err)

	got, err := svc.GetOrder(ctx, order.ID, owner.ID, false)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	require.NotNil(t, got.Customer)
	assert.Equal(t, "owner@example.com", got.Customer.Email)

	_, err = svc.GetOrder(ctx, order.ID, stranger.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetOrder(ctx, order.ID, admin.ID, true)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, uuid.New(), admin.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	product := createTestProduct(t, r.DB, "Widget", 1500, 100, models.ProductStatusActive)

	newOrder := func(t *testing.T) *models.Order {
		o, err := svc.CreateOrder(ctx, orderRequest(
			transport.CreateOrderItem{ProductID: product.ID, Quantity: 1},
		), customer.ID)
		require.NoError(t, err)
		return o
	}

	t.Run("requires admin", func(t *testing.T) {
		o := newOrder(t)
		_, err := svc.UpdateOrderStatus(ctx, o.ID, models.OrderStatusShipped, false)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := svc.UpdateOrderStatus(ctx, uuid.New(), models.OrderStatusShipped, true)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		o := newOrder(t)
		_, err := svc.UpdateOrderStatus(ctx, o.ID, "TELEPORTED", true)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("any to any while not terminal", func(t *testing.T) {
		o := newOrder(t)

		o, err := svc.UpdateOrderStatus(ctx, o.ID, models.OrderStatusShipped, true)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, o.Status)

		// backwards moves are allowed
		o, err = svc.UpdateOrderStatus(ctx, o.ID, models.OrderStatusPending, true)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, o.Status)
	})

	t.Run("terminal states are frozen", func(t *testing.T) {
		for _, terminal := range []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusDelivered} {
			o := newOrder(t)
			_, err := svc.UpdateOrderStatus(ctx, o.ID, terminal, true)
			require.NoError(t, err)

			_, err = svc.UpdateOrderStatus(ctx, o.ID, models.OrderStatusProcessing, true)
			assert.ErrorIs(t, err, ErrInvalidTransition, "from %s", terminal)
		}
	})
}

func TestCancelOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	owner := createTestUser(t, r.DB, "owner@example.com", models.RoleUser)
	stranger := createTestUser(t, r.DB, "stranger@example.com", models.RoleUser)

	scarce := createTestProduct(t, r.DB, "Scarce", 1000, 2, models.ProductStatusActive)
	common := createTestProduct(t, r.DB, "Common", 500, 6, models.ProductStatusActive)

	order, err := svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: scarce.ID, Quantity: 2},
		transport.CreateOrderItem{ProductID: common.ID, Quantity: 1},
	), owner.ID)
	require.NoError(t, err)

	p := reloadProduct(t, r.DB, scarce.ID)
	require.Equal(t, 0, p.Stock)
	require.Equal(t, models.ProductStatusOutOfStock, p.Status)
	require.Equal(t, 5, reloadProduct(t, r.DB, common.ID).Stock)

	_, err = svc.CancelOrder(ctx, order.ID, stranger.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := svc.CancelOrder(ctx, order.ID, owner.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	p = reloadProduct(t, r.DB, scarce.ID)
	assert.Equal(t, 2, p.Stock)
	assert.Equal(t, models.ProductStatusActive, p.Status)
	assert.Equal(t, 6, reloadProduct(t, r.DB, common.ID).Stock)

	// cancelling twice fails once the order is terminal
	_, err = svc.CancelOrder(ctx, order.ID, owner.ID, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelOrderStatusGuards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	owner := createTestUser(t, r.DB, "owner@example.com", models.RoleUser)
	admin := createTestUser(t, r.DB, "admin@example.com", models.RoleAdmin)
	product := createTestProduct(t, r.DB, "Widget", 1500, 100, models.ProductStatusActive)

	newOrderIn := func(t *testing.T, status models.OrderStatus) *models.Order {
		o, err := svc.CreateOrder(ctx, orderRequest(
			transport.CreateOrderItem{ProductID: product.ID, Quantity: 1},
		), owner.ID)
		require.NoError(t, err)
		if status != models.OrderStatusPending {
			require.NoError(t, r.UpdateOrderStatus(ctx, o.ID, status))
		}
		return o
	}

	t.Run("processing is cancellable", func(t *testing.T) {
		o := newOrderIn(t, models.OrderStatusProcessing)
		cancelled, err := svc.CancelOrder(ctx, o.ID, owner.ID, false)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	})

	t.Run("shipped is not", func(t *testing.T) {
		o := newOrderIn(t, models.OrderStatusShipped)
		_, err := svc.CancelOrder(ctx, o.ID, owner.ID, false)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("admin can cancel someone else's order", func(t *testing.T) {
		o := newOrderIn(t, models.OrderStatusPending)
		_, err := svc.CancelOrder(ctx, o.ID, admin.ID, true)
		assert.NoError(t, err)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := svc.CancelOrder(ctx, uuid.New(), admin.ID, true)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCancelOrderSkipsDeletedProduct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &OrderService{Repo: r}

	owner := createTestUser(t, r.DB, "owner@example.com", models.RoleUser)
	keep := createTestProduct(t, r.DB, "Kept", 1000, 5, models.ProductStatusActive)
	gone := createTestProduct(t, r.DB, "Gone", 1000, 5, models.ProductStatusActive)

	order, err := svc.CreateOrder(ctx, orderRequest(
		transport.CreateOrderItem{ProductID: keep.ID, Quantity: 1},
		transport.CreateOrderItem{ProductID: gone.ID, Quantity: 1},
	), owner.ID)
	require.NoError(t, err)

	// the product disappears from the catalog while its order item remains
	require.NoError(t, r.DB.Exec("DELETE FROM products WHERE id = ?", gone.ID).Error)

	cancelled, err := svc.CancelOrder(ctx, order.ID, owner.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, reloadProduct(t, r.DB, keep.ID).Stock)
}

func TestStockUnavailableErrorMessage(t *testing.T) {
	t.Parallel()

	err := &StockUnavailableError{Problems: []string{"a: gone", "b: gone"}}
	assert.Contains(t, err.Error(), "a: gone")
	assert.Contains(t, err.Error(), "b: gone")

	var target *StockUnavailableError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
}
