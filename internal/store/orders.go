package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// CreateOrder creates a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, total_amount, shipping_address, payment_method, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := s.get(ctx, order, query,
		order.UserID, order.TotalAmount, order.ShippingAddress,
		order.PaymentMethod, order.Status, order.IdempotencyKey)
	return translate(err)
}

// CreateOrderItem creates a new order item
func (s *Store) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := s.get(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Quantity, item.Price)
	return translate(err)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	return s.getOrder(ctx, "SELECT * FROM orders WHERE id = $1", id)
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.get(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockOrder retrieves an order FOR UPDATE. Must run inside WithTx.
func (s *Store) LockOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.getOrder(ctx, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", id)
}

func (s *Store) getOrder(ctx context.Context, query string, id int64) (*models.Order, error) {
	var order models.Order
	err := s.get(ctx, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders retrieves orders newest first. Items are not loaded.
func (s *Store) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *filter.UserID)
	}

	query := "SELECT * FROM orders"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	orders := []models.Order{}
	err := s.selectAll(ctx, &orders, s.ext.Rebind(query), args...)
	return orders, err
}

// ListOrderItemsWithProducts retrieves the items of several orders joined
// with the product name, ordered by order then item.
func (s *Store) ListOrderItemsWithProducts(ctx context.Context, orderIDs []int64) ([]models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []models.OrderItem{}, nil
	}

	query, args, err := s.in(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, p.name AS product_name
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.order_id, oi.id`, orderIDs)
	if err != nil {
		return nil, err
	}

	items := []models.OrderItem{}
	err = s.selectAll(ctx, &items, query, args...)
	return items, err
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	return s.execOne(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
}

// CountOrdersByStatus groups order counts by status
func (s *Store) CountOrdersByStatus(ctx context.Context) ([]models.StatusCount, error) {
	counts := []models.StatusCount{}
	err := s.selectAll(ctx, &counts,
		"SELECT status, COUNT(*) AS count FROM orders GROUP BY status ORDER BY status")
	return counts, err
}

// TotalRevenue sums totals of orders that were not cancelled
func (s *Store) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.get(ctx, &total,
		"SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status <> $1",
		models.OrderStatusCancelled)
	return total, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.get(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.ext.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
