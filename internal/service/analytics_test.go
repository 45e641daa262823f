package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avolkov/shop-admin/internal/models"
)

func seedOrderAt(t *testing.T, db *gorm.DB, customer *models.User, number string, total int64, status models.OrderStatus, at time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		CustomerID:  customer.ID,
		OrderNumber: number,
		Status:      status,
		Total:       total,
	}
	require.NoError(t, db.Create(order).Error)
	require.NoError(t, db.Model(order).Update("created_at", at).Error)
	return order
}

func TestDashboard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &AnalyticsService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	createTestProduct(t, r.DB, "Widget", 1000, 10, models.ProductStatusActive)
	createTestProduct(t, r.DB, "Gadget", 2000, 10, models.ProductStatusActive)

	now := time.Now()
	seedOrderAt(t, r.DB, customer, "ORD-A", 1000, models.OrderStatusDelivered, now)
	seedOrderAt(t, r.DB, customer, "ORD-B", 2500, models.OrderStatusPending, now)
	seedOrderAt(t, r.DB, customer, "ORD-C", 9999, models.OrderStatusCancelled, now)

	stats, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, stats.TotalUsers)
	assert.EqualValues(t, 2, stats.TotalProducts)
	// cancelled orders count for neither sales nor revenue
	assert.EqualValues(t, 2, stats.TotalSales)
	assert.EqualValues(t, 3500, stats.TotalRevenue)
}

func TestSalesByMonth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)

	fixedNow := time.Date(2024, time.March, 20, 10, 0, 0, 0, time.UTC)
	svc := &AnalyticsService{Repo: r, Now: func() time.Time { return fixedNow }}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)

	jan := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	seedOrderAt(t, r.DB, customer, "ORD-JAN-1", 1000, models.OrderStatusDelivered, jan)
	seedOrderAt(t, r.DB, customer, "ORD-JAN-2", 500, models.OrderStatusShipped, jan.AddDate(0, 0, 10))
	seedOrderAt(t, r.DB, customer, "ORD-MAR-1", 2000, models.OrderStatusPending, mar)
	seedOrderAt(t, r.DB, customer, "ORD-MAR-X", 7777, models.OrderStatusCancelled, mar)

	rows, err := svc.SalesByMonth(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "2024-01", rows[0].Month)
	assert.EqualValues(t, 2, rows[0].Sales)
	assert.EqualValues(t, 1500, rows[0].Revenue)

	// empty months still get a row
	assert.Equal(t, "2024-02", rows[1].Month)
	assert.Zero(t, rows[1].Sales)
	assert.Zero(t, rows[1].Revenue)

	assert.Equal(t, "2024-03", rows[2].Month)
	assert.EqualValues(t, 1, rows[2].Sales)
	assert.EqualValues(t, 2000, rows[2].Revenue)
}

func TestTopProducts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newTestRepo(t)
	svc := &AnalyticsService{Repo: r}

	customer := createTestUser(t, r.DB, "buyer@example.com", models.RoleUser)
	popular := createTestProduct(t, r.DB, "Popular", 1000, 50, models.ProductStatusActive)
	niche := createTestProduct(t, r.DB, "Niche", 5000, 50, models.ProductStatusActive)

	now := time.Now()
	live := seedOrderAt(t, r.DB, customer, "ORD-1", 0, models.OrderStatusDelivered, now)
	cancelled := seedOrderAt(t, r.DB, customer, "ORD-2", 0, models.OrderStatusCancelled, now)

	items := []models.OrderItem{
		{OrderID: live.ID, ProductID: popular.ID, Quantity: 5, Price: 1000},
		{OrderID: live.ID, ProductID: niche.ID, Quantity: 1, Price: 5000},
		{OrderID: cancelled.ID, ProductID: niche.ID, Quantity: 100, Price: 5000},
	}
	for i := range items {
		require.NoError(t, r.DB.Create(&items[i]).Error)
	}

	rows, err := svc.TopProducts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, popular.ID, rows[0].ProductID)
	assert.EqualValues(t, 5, rows[0].TotalQuantity)
	assert.EqualValues(t, 5000, rows[0].TotalRevenue)

	// the cancelled order's hundred units never show up
	assert.Equal(t, niche.ID, rows[1].ProductID)
	assert.EqualValues(t, 1, rows[1].TotalQuantity)
}
