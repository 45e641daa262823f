package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/avolkov/shop-admin/internal/models"
)

type UserFilter struct {
	Offset int
	Limit  int
	Search string
	SortBy string // whitelisted column name
	Desc   bool
	Role   string
}

func (r *GormRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, user *models.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *GormRepo) SaveUser(ctx context.Context, user *models.User) error {
	return r.DB.WithContext(ctx).Save(user).Error
}

func (r *GormRepo) ListUsers(ctx context.Context, f UserFilter) (int64, []models.User, error) {
	q := r.DB.WithContext(ctx).Model(&models.User{})

	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}

	var users []models.User
	err := q.Order(fmt.Sprintf("%s %s", f.SortBy, dir)).
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&users).Error
	if err != nil {
		return 0, nil, err
	}

	return total, users, nil
}
