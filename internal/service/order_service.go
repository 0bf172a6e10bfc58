package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles order lookup and the status lifecycle
type OrderService struct {
	repo      store.Repository
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service. publisher may be nil.
func NewOrderService(repo store.Repository, publisher EventPublisher) *OrderService {
	return &OrderService{
		repo:      repo,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// GetOrderForUser returns an order with its items if it belongs to userID.
// Orders of other users are reported as not found.
func (s *OrderService) GetOrderForUser(ctx context.Context, userID, orderID int64) (order *models.Order, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrderForUser")
	defer func() { util.EndSpan(span, err) }()

	order, err = s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err)
	}
	if order.UserID != userID {
		return nil, ErrNotFound
	}
	if err := s.attachItems(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder returns any order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.attachItems(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns every order newest first, optionally filtered by status
func (s *OrderService) ListOrders(ctx context.Context, status string) (orders []models.Order, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer func() { util.EndSpan(span, err) }()

	var filter store.OrderFilter
	if status != "" {
		st := models.OrderStatus(status)
		if !st.Valid() {
			return nil, ErrInvalidStatus
		}
		filter.Status = &st
	}
	return s.listOrders(ctx, filter)
}

// ListOrdersForCustomer returns a customer's orders newest first
func (s *OrderService) ListOrdersForCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, notFound(err)
	}
	return s.listOrders(ctx, store.OrderFilter{UserID: &customerID})
}

func (s *OrderService) listOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, error) {
	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	ptrs := make([]*models.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := s.attachItems(ctx, ptrs); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves an order to a new status. Unknown statuses leave the
// order untouched. Delivered and cancelled orders cannot change; setting the
// current status again succeeds without side effects.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status string) (order *models.Order, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer func() { util.EndSpan(span, err) }()

	newStatus := models.OrderStatus(status)
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	var oldStatus models.OrderStatus
	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		locked, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFound(err)
		}
		oldStatus = locked.Status
		order = locked

		if oldStatus == newStatus {
			return nil
		}
		if oldStatus.Terminal() {
			return ErrTerminalStatus
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
			return notFound(err)
		}
		order.Status = newStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	if oldStatus == newStatus {
		return order, nil
	}

	util.OrderStatusChangesTotal.WithLabelValues(string(newStatus)).Inc()
	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(newStatus)))

	if s.publisher != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusChanged,
				Timestamp: time.Now(),
			},
			OrderID:   order.ID,
			UserID:    order.UserID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event",
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
	}
	return order, nil
}

// attachItems loads the items of all orders in one query
func (s *OrderService) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []models.OrderItem{}
	}

	items, err := s.repo.ListOrderItemsWithProducts(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return nil
}
