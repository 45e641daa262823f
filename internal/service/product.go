package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/shop-admin/internal/logging"
	"github.com/avolkov/shop-admin/internal/models"
	"github.com/avolkov/shop-admin/internal/repo"
	"github.com/avolkov/shop-admin/internal/transport"
	"github.com/avolkov/shop-admin/internal/util"
)

type ProductService struct {
	Repo *repo.GormRepo
}

var productSortColumns = map[string]string{
	"created_at": "created_at",
	"createdAt":  "created_at",
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"status":     "status",
}

type ProductListOptions struct {
	Page       int
	Limit      int
	Search     string
	SortBy     string
	Order      string
	Status     string
	CategoryID uuid.UUID
	MinPrice   int64
	MaxPrice   int64
}

func (s *ProductService) GetProducts(ctx context.Context, opts ProductListOptions) (int64, []models.Product, error) {
	offset, limit := util.Calculate(opts.Page, opts.Limit)

	sortBy, ok := productSortColumns[opts.SortBy]
	if !ok {
		sortBy = "created_at"
	}

	return s.Repo.ListProducts(ctx, repo.ProductFilter{
		Offset:     offset,
		Limit:      limit,
		Search:     opts.Search,
		SortBy:     sortBy,
		Desc:       opts.Order != "asc",
		Status:     models.ProductStatus(opts.Status),
		CategoryID: opts.CategoryID,
		MinPrice:   opts.MinPrice,
		MaxPrice:   opts.MaxPrice,
	})
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		return nil, err
	}
	return product, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if req.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be > 0", ErrValidation)
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	if req.CategoryID == uuid.Nil {
		return nil, fmt.Errorf("%w: category_id required", ErrValidation)
	}

	if _, err := s.Repo.GetCategory(ctx, req.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %s", ErrNotFound, req.CategoryID)
		}
		return nil, err
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		Price:       req.Price,
		Cost:        req.Cost,
		Stock:       req.Stock,
		Image:       req.Image,
		CategoryID:  req.CategoryID,
		Status:      reconcileStatus(models.ProductStatusActive, req.Stock),
	}

	if err := s.Repo.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: sku already in use", ErrConflict)
		}
		return nil, err
	}

	logging.FromContext(ctx).Info("product_created", "product_id", product.ID, "name", product.Name)
	return s.Repo.GetProduct(ctx, product.ID)
}

func (s *ProductService) PatchProduct(ctx context.Context, id uuid.UUID, req transport.PatchProductRequest) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.SKU != nil {
		product.SKU = *req.SKU
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, fmt.Errorf("%w: price must be > 0", ErrValidation)
		}
		product.Price = *req.Price
	}
	if req.Cost != nil {
		product.Cost = *req.Cost
	}
	if req.Image != nil {
		product.Image = *req.Image
	}
	if req.CategoryID != nil {
		if _, err := s.Repo.GetCategory(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: category %s", ErrNotFound, *req.CategoryID)
			}
			return nil, err
		}
		product.CategoryID = *req.CategoryID
	}
	if req.Status != nil {
		switch *req.Status {
		case models.ProductStatusActive, models.ProductStatusInactive, models.ProductStatusOutOfStock:
			product.Status = *req.Status
		default:
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
		}
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, fmt.Errorf("%w: stock cannot be negative", ErrValidation)
		}
		product.Stock = *req.Stock
	}

	// Keep the stock<->status reconciliation unless the caller pinned an
	// explicit status in the same request.
	if req.Status == nil {
		product.Status = reconcileStatus(product.Status, product.Stock)
	}

	if err := s.Repo.SaveProduct(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: sku already in use", ErrConflict)
		}
		return nil, err
	}

	return s.Repo.GetProduct(ctx, id)
}

func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}

	n, err := s.Repo.CountOrderItemsByProduct(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: product is referenced by %d order item(s)", ErrConflict, n)
	}

	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("product_deleted", "product_id", id)
	return nil
}

// reconcileStatus applies the default stock<->status coupling: zero stock
// means OUT_OF_STOCK, stock coming back means a formerly OUT_OF_STOCK
// product is ACTIVE again. An explicit INACTIVE stays INACTIVE.
func reconcileStatus(current models.ProductStatus, stock int) models.ProductStatus {
	if stock == 0 {
		if current == models.ProductStatusInactive {
			return current
		}
		return models.ProductStatusOutOfStock
	}
	if current == models.ProductStatusOutOfStock {
		return models.ProductStatusActive
	}
	return current
}
