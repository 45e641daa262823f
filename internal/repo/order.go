package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/shop-admin/internal/models"
)

type OrderFilter struct {
	Offset     int
	Limit      int
	Search     string
	SortBy     string // whitelisted column name
	Desc       bool
	Status     models.OrderStatus
	CustomerID uuid.UUID
}

// CreateOrder persists the order with its items and decrements product stock
// in one transaction. The decrement is conditional (stock >= quantity), so a
// concurrent checkout that would drive stock negative fails the whole
// transaction with ErrInsufficientStock instead.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		for i := range order.Items {
			item := &order.Items[i]

			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
				Update("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: product %s", ErrInsufficientStock, item.ProductID)
			}

			if err := tx.Model(&models.Product{}).
				Where("id = ? AND stock = 0", item.ProductID).
				Update("status", models.ProductStatusOutOfStock).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Preload("Customer").
		Preload("Items.Product").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).
		Joins("LEFT JOIN users ON users.id = orders.customer_id")

	if f.CustomerID != uuid.Nil {
		q = q.Where("orders.customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		q = q.Where("orders.status = ?", f.Status)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where(
			"LOWER(orders.order_number) LIKE ? OR LOWER(users.name) LIKE ? OR LOWER(users.email) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}

	var orders []models.Order
	err := q.Order(fmt.Sprintf("orders.%s %s", f.SortBy, dir)).
		Offset(f.Offset).
		Limit(f.Limit).
		Preload("Customer").
		Preload("Items.Product").
		Find(&orders).Error
	if err != nil {
		return 0, nil, err
	}

	return total, orders, nil
}

func (r *GormRepo) CountOrdersBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("created_at BETWEEN ? AND ?", from, to).
		Count(&n).Error
	return n, err
}

func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// CancelOrder restores the stock consumed by each order item and marks the
// order CANCELLED, all in one transaction. A product that left OUT_OF_STOCK
// thanks to the restore becomes ACTIVE again; any other status stays as is.
func (r *GormRepo) CancelOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range order.Items {
			item := &order.Items[i]

			var product models.Product
			if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// product removed from the catalog since purchase
					continue
				}
				return err
			}

			newStock := product.Stock + item.Quantity
			updates := map[string]any{"stock": newStock}
			if product.Status == models.ProductStatusOutOfStock && newStock > 0 {
				updates["status"] = models.ProductStatusActive
			}
			if err := tx.Model(&product).Updates(updates).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("status", models.OrderStatusCancelled).Error
	})
}
