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

type ReviewService struct {
	Repo *repo.GormRepo
}

// CreateReview records a customer's review of a product. One review per
// customer per product; duplicates surface as Conflict.
func (s *ReviewService) CreateReview(ctx context.Context, req transport.CreateReviewRequest, customerID uuid.UUID) (*models.Review, error) {
	if req.ProductID == uuid.Nil {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	if _, err := s.Repo.GetProduct(ctx, req.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, req.ProductID)
		}
		return nil, err
	}

	review := &models.Review{
		ProductID:  req.ProductID,
		CustomerID: customerID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Status:     models.ReviewStatusPending,
	}

	if err := s.Repo.CreateReview(ctx, review); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: you already reviewed this product", ErrConflict)
		}
		return nil, err
	}

	logging.FromContext(ctx).Info("review_created", "review_id", review.ID, "product_id", req.ProductID)
	return review, nil
}

// GetProductReviews lists a product's reviews. Non-admin callers only see
// APPROVED ones; admins may filter by any moderation status.
func (s *ReviewService) GetProductReviews(ctx context.Context, productID uuid.UUID, page, limit int, statusFilter string, isAdmin bool) (int64, []models.Review, error) {
	offset, limit := util.Calculate(page, limit)

	status := models.ReviewStatusApproved
	if isAdmin {
		status = models.ReviewStatus(statusFilter)
	}

	return s.Repo.ListReviews(ctx, repo.ReviewFilter{
		Offset:    offset,
		Limit:     limit,
		ProductID: productID,
		Status:    status,
	})
}

func (s *ReviewService) ModerateReview(ctx context.Context, id uuid.UUID, status models.ReviewStatus, isAdmin bool) (*models.Review, error) {
	if !isAdmin {
		return nil, fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	if status != models.ReviewStatusApproved && status != models.ReviewStatusRejected {
		return nil, fmt.Errorf("%w: status must be APPROVED or REJECTED", ErrValidation)
	}

	if _, err := s.Repo.GetReview(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: review %s", ErrNotFound, id)
		}
		return nil, err
	}

	if err := s.Repo.UpdateReviewStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.Repo.GetReview(ctx, id)
}

func (s *ReviewService) DeleteReview(ctx context.Context, id uuid.UUID, requestUserID uuid.UUID, isAdmin bool) error {
	review, err := s.Repo.GetReview(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: review %s", ErrNotFound, id)
		}
		return err
	}

	if !isAdmin && review.CustomerID != requestUserID {
		return fmt.Errorf("%w: not your review", ErrForbidden)
	}

	return s.Repo.DeleteReview(ctx, id)
}
