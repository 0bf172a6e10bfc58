package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"
)

const recentOrdersLimit = 5

// AdminService aggregates store-wide figures
type AdminService struct {
	repo              store.Repository
	orders            *OrderService
	lowStockThreshold int
}

// NewAdminService creates a new admin service
func NewAdminService(repo store.Repository, orders *OrderService, lowStockThreshold int) *AdminService {
	return &AdminService{repo: repo, orders: orders, lowStockThreshold: lowStockThreshold}
}

// Dashboard collects the admin landing page figures
func (s *AdminService) Dashboard(ctx context.Context) (dash *models.Dashboard, err error) {
	ctx, span := util.StartSpan(ctx, "AdminService.Dashboard")
	defer func() { util.EndSpan(span, err) }()

	dash = &models.Dashboard{}

	if dash.OrdersByStatus, err = s.repo.CountOrdersByStatus(ctx); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	for _, c := range dash.OrdersByStatus {
		dash.TotalOrders += c.Count
	}
	if dash.TotalRevenue, err = s.repo.TotalRevenue(ctx); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if dash.ProductCount, err = s.repo.CountProducts(ctx); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if dash.CustomerCount, err = s.repo.CountCustomers(ctx); err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	if dash.LowStockProducts, err = s.repo.ListLowStockProducts(ctx, s.lowStockThreshold); err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	if dash.RecentOrders, err = s.orders.listOrders(ctx, store.OrderFilter{Limit: recentOrdersLimit}); err != nil {
		return nil, err
	}
	return dash, nil
}

// ListCustomers returns every customer with order count and total spent
func (s *AdminService) ListCustomers(ctx context.Context) ([]models.CustomerSummary, error) {
	customers, err := s.repo.ListCustomerSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}
