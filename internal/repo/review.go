package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/shop-admin/internal/models"
)

type ReviewFilter struct {
	Offset    int
	Limit     int
	ProductID uuid.UUID
	Status    models.ReviewStatus
}

func (r *GormRepo) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.DB.WithContext(ctx).Preload("Customer").First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *GormRepo) CreateReview(ctx context.Context, review *models.Review) error {
	return r.DB.WithContext(ctx).Create(review).Error
}

func (r *GormRepo) ListReviews(ctx context.Context, f ReviewFilter) (int64, []models.Review, error) {
	q := r.DB.WithContext(ctx).Model(&models.Review{})

	if f.ProductID != uuid.Nil {
		q = q.Where("product_id = ?", f.ProductID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var reviews []models.Review
	err := q.Order("created_at DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Preload("Customer").
		Find(&reviews).Error
	if err != nil {
		return 0, nil, err
	}

	return total, reviews, nil
}

func (r *GormRepo) UpdateReviewStatus(ctx context.Context, id uuid.UUID, status models.ReviewStatus) error {
	return r.DB.WithContext(ctx).Model(&models.Review{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *GormRepo) DeleteReview(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
