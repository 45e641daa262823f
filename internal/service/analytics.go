package service

import (
	"context"
	"time"

	"github.com/avolkov/shop-admin/internal/repo"
)

type AnalyticsService struct {
	Repo *repo.GormRepo

	Now func() time.Time
}

func (s *AnalyticsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type DashboardStats struct {
	TotalUsers    int64 `json:"total_users"`
	TotalProducts int64 `json:"total_products"`
	TotalSales    int64 `json:"total_sales"`
	TotalRevenue  int64 `json:"total_revenue"`
}

type MonthlySales struct {
	Month   string `json:"month"` // YYYY-MM
	Sales   int64  `json:"sales"`
	Revenue int64  `json:"revenue"`
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	users, err := s.Repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.Repo.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	sales, revenue, err := s.Repo.SalesBetween(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalUsers:    users,
		TotalProducts: products,
		TotalSales:    sales,
		TotalRevenue:  revenue,
	}, nil
}

// SalesByMonth returns one row per month for the last `months` calendar
// months, oldest first, including months with no sales.
func (s *AnalyticsService) SalesByMonth(ctx context.Context, months int) ([]MonthlySales, error) {
	if months <= 0 {
		months = 6
	}

	now := s.now()
	out := make([]MonthlySales, 0, months)

	for i := months - 1; i >= 0; i-- {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		sales, revenue, err := s.Repo.SalesBetween(ctx, start, end)
		if err != nil {
			return nil, err
		}

		out = append(out, MonthlySales{
			Month:   start.Format("2006-01"),
			Sales:   sales,
			Revenue: revenue,
		})
	}

	return out, nil
}

func (s *AnalyticsService) TopProducts(ctx context.Context, limit int) ([]repo.TopProductRow, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.Repo.TopProducts(ctx, limit)
}
