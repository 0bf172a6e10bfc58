package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutOptions tunes the checkout guard
type CheckoutOptions struct {
	LockTTL        time.Duration
	IdempotencyTTL time.Duration
}

// CheckoutService converts a cart into an order
type CheckoutService struct {
	repo      store.Repository
	guard     CheckoutGuard
	cache     CartCountCache
	publisher EventPublisher
	opts      CheckoutOptions
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service. guard, cache and
// publisher may be nil.
func NewCheckoutService(
	repo store.Repository,
	guard CheckoutGuard,
	cache CartCountCache,
	publisher EventPublisher,
	opts CheckoutOptions,
) *CheckoutService {
	return &CheckoutService{
		repo:      repo,
		guard:     guard,
		cache:     cache,
		publisher: publisher,
		opts:      opts,
		logger:    util.GetLogger(),
	}
}

// Checkout places an order for everything in the user's cart.
//
// Stock check, order creation, stock decrement and cart clearing happen in
// one transaction: either all of them are visible afterwards or none are.
// Product rows are locked for the duration so concurrent checkouts of the
// same product serialise on the database.
func (s *CheckoutService) Checkout(ctx context.Context, userID int64, form CheckoutForm, idempotencyKey string) (order *models.Order, err error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
		util.CheckoutsTotal.WithLabelValues(checkoutOutcome(err)).Inc()
		util.EndSpan(span, err)
	}()

	key := scopedKey(userID, idempotencyKey)
	if key != "" {
		existing, err := s.replay(ctx, userID, key)
		if err != nil {
			return nil, s.failed(userID, err)
		}
		if existing != nil {
			s.logger.Info("Duplicate checkout request detected",
				zap.String("idempotency_key", idempotencyKey),
				zap.Int64("order_id", existing.ID))
			return existing, nil
		}
	}

	cart, err := userCart(ctx, s.repo, userID)
	if errors.Is(err, ErrUnknownCustomer) {
		return nil, err
	}
	if err != nil {
		return nil, s.failed(userID, err)
	}
	items, err := s.repo.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, s.failed(userID, err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	if err := form.Validate(); err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	var placed *models.Order
	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		var err error
		placed, err = s.placeOrder(ctx, tx, cart.ID, userID, form, key)
		return err
	})
	if errors.Is(err, store.ErrDuplicate) && key != "" {
		// a concurrent request with the same key won the insert
		if existing, rerr := s.replay(ctx, userID, key); rerr == nil && existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, s.checkoutError(userID, err)
	}

	s.afterCommit(ctx, placed, key)
	return placed, nil
}

// placeOrder runs inside the checkout transaction
func (s *CheckoutService) placeOrder(
	ctx context.Context,
	tx store.Repository,
	cartID, userID int64,
	form CheckoutForm,
	key string,
) (*models.Order, error) {
	items, err := tx.ListCartItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	locked, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	products := make(map[int64]models.Product, len(locked))
	for _, p := range locked {
		products[p.ID] = p
	}

	total := decimal.Zero
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, ErrNotFound)
		}
		if product.Stock < item.Quantity {
			return nil, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   item.Quantity,
				Available:   product.Stock,
			}
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	order := &models.Order{
		UserID:          userID,
		TotalAmount:     total,
		ShippingAddress: form.ShippingAddress,
		PaymentMethod:   form.PaymentMethod,
		Status:          models.OrderStatusPending,
	}
	if key != "" {
		order.IdempotencyKey = &key
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range items {
		product := products[item.ProductID]
		orderItem := models.OrderItem{
			OrderID:     order.ID,
			ProductID:   product.ID,
			Quantity:    item.Quantity,
			Price:       product.Price,
			ProductName: product.Name,
		}
		if err := tx.CreateOrderItem(ctx, &orderItem); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}

		err := tx.DecrementStock(ctx, product.ID, item.Quantity)
		if errors.Is(err, store.ErrInsufficientStock) {
			return nil, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   item.Quantity,
				Available:   product.Stock,
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}

		order.Items = append(order.Items, orderItem)
	}

	if err := tx.ClearCart(ctx, cartID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	return order, nil
}

func (s *CheckoutService) afterCommit(ctx context.Context, order *models.Order, key string) {
	if s.guard != nil && key != "" {
		if err := s.guard.RememberCheckout(ctx, key, order.ID, s.opts.IdempotencyTTL); err != nil {
			s.logger.Warn("Failed to remember checkout", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidateCartCount(ctx, order.UserID); err != nil {
			s.logger.Warn("Failed to invalidate cart count", zap.Int64("user_id", order.UserID), zap.Error(err))
		}
	}

	util.OrdersPlacedTotal.WithLabelValues(string(order.PaymentMethod)).Inc()
	util.OrderRevenueTotal.Add(order.TotalAmount.InexactFloat64())
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.Int("items", len(order.Items)))

	if s.publisher == nil {
		return
	}
	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		Items:         items,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}

// acquire takes the per-user checkout lock. An unreachable guard is logged
// and checkout proceeds on database locking alone.
func (s *CheckoutService) acquire(ctx context.Context, userID int64) (func(), error) {
	noop := func() {}
	if s.guard == nil {
		return noop, nil
	}

	lockKey := fmt.Sprintf("checkout:%d", userID)
	token, ok, err := s.guard.AcquireLock(ctx, lockKey, s.opts.LockTTL)
	if err != nil {
		s.logger.Warn("Checkout lock unavailable, continuing without it",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}

	return func() {
		// the request context may already be cancelled
		if err := s.guard.ReleaseLock(context.Background(), lockKey, token); err != nil {
			s.logger.Warn("Failed to release checkout lock", zap.Int64("user_id", userID), zap.Error(err))
		}
	}, nil
}

// replay returns the order previously placed with key, or nil
func (s *CheckoutService) replay(ctx context.Context, userID int64, key string) (*models.Order, error) {
	var order *models.Order

	if s.guard != nil {
		orderID, ok, err := s.guard.LookupCheckout(ctx, key)
		if err != nil {
			s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		} else if ok {
			order, err = s.repo.GetOrderByID(ctx, orderID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}
	}

	if order == nil {
		var err error
		order, err = s.repo.GetOrderByIdempotencyKey(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
	}

	if order.UserID != userID {
		return nil, nil
	}
	items, err := s.repo.ListOrderItemsWithProducts(ctx, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// checkoutError passes domain errors through and hides everything else
// behind ErrCheckoutFailed.
func (s *CheckoutService) checkoutError(userID int64, err error) error {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		util.StockRejectionsTotal.Inc()
		s.logger.Info("Checkout rejected, insufficient stock",
			zap.Int64("user_id", userID),
			zap.Int64("product_id", stockErr.ProductID),
			zap.Int("requested", stockErr.Requested),
			zap.Int("available", stockErr.Available))
		return err
	}
	if errors.Is(err, ErrEmptyCart) {
		return err
	}
	return s.failed(userID, err)
}

func (s *CheckoutService) failed(userID int64, err error) error {
	s.logger.Error("Checkout failed", zap.Int64("user_id", userID), zap.Error(err))
	return fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
}

func scopedKey(userID int64, key string) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%d:%s", userID, key)
}

func checkoutOutcome(err error) string {
	var validationErr *ValidationError
	var stockErr *InsufficientStockError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &validationErr):
		return "invalid_form"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.Is(err, ErrCheckoutInProgress):
		return "in_progress"
	}
	return "error"
}
