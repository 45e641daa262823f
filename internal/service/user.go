package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/shop-admin/internal/models"
	"github.com/avolkov/shop-admin/internal/repo"
	"github.com/avolkov/shop-admin/internal/transport"
	"github.com/avolkov/shop-admin/internal/util"
)

// UserService is the admin-only user administration surface.
type UserService struct {
	Repo *repo.GormRepo
}

var userSortColumns = map[string]string{
	"created_at": "created_at",
	"createdAt":  "created_at",
	"name":       "name",
	"email":      "email",
	"role":       "role",
}

type UserListOptions struct {
	Page   int
	Limit  int
	Search string
	SortBy string
	Order  string
	Role   string
}

func (s *UserService) GetUsers(ctx context.Context, opts UserListOptions) (int64, []models.User, error) {
	offset, limit := util.Calculate(opts.Page, opts.Limit)

	sortBy, ok := userSortColumns[opts.SortBy]
	if !ok {
		sortBy = "created_at"
	}

	return s.Repo.ListUsers(ctx, repo.UserFilter{
		Offset: offset,
		Limit:  limit,
		Search: opts.Search,
		SortBy: sortBy,
		Desc:   opts.Order != "asc",
		Role:   opts.Role,
	})
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return nil, err
	}
	return user, nil
}

// UpdateUser changes name/avatar/role. An admin cannot change their own
// role; that would allow accidentally locking the last admin out.
func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, req transport.UpdateUserRequest, requestUserID uuid.UUID) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		user.Name = *req.Name
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.Role != nil {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleUser {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *req.Role)
		}
		if id == requestUserID && *req.Role != user.Role {
			return nil, fmt.Errorf("%w: cannot change your own role", ErrForbidden)
		}
		user.Role = *req.Role
	}

	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
