package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/shop-admin/internal/models"
)

type TopProductRow struct {
	ProductID     uuid.UUID `json:"product_id"`
	Name          string    `json:"name"`
	Stock         int       `json:"stock"`
	TotalQuantity int64     `json:"total_quantity"`
	TotalRevenue  int64     `json:"total_revenue"`
}

func (r *GormRepo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (r *GormRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&n).Error
	return n, err
}

// SalesBetween reports the number of non-cancelled orders and their summed
// totals inside [from, to).
func (r *GormRepo) SalesBetween(ctx context.Context, from, to time.Time) (orders int64, revenue int64, err error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("status <> ?", models.OrderStatusCancelled)
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}

	if err = q.Count(&orders).Error; err != nil {
		return 0, 0, err
	}

	var sum *int64
	if err = q.Select("SUM(total)").Scan(&sum).Error; err != nil {
		return 0, 0, err
	}
	if sum != nil {
		revenue = *sum
	}
	return orders, revenue, nil
}

func (r *GormRepo) TopProducts(ctx context.Context, limit int) ([]TopProductRow, error) {
	var rows []TopProductRow
	err := r.DB.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id AS product_id, products.name AS name, products.stock AS stock, "+
			"SUM(order_items.quantity) AS total_quantity, "+
			"SUM(order_items.quantity * order_items.price) AS total_revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id AND orders.status <> ?", models.OrderStatusCancelled).
		Joins("JOIN products ON products.id = order_items.product_id").
		Group("order_items.product_id, products.name, products.stock").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
