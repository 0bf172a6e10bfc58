package service

import (
	"context"
	"time"

	"storefront/internal/models"
)

// EventPublisher publishes order events after the owning transaction commits
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// CheckoutGuard serialises checkouts per user and remembers completed ones
// by idempotency key.
type CheckoutGuard interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
	LookupCheckout(ctx context.Context, key string) (int64, bool, error)
	RememberCheckout(ctx context.Context, key string, orderID int64, ttl time.Duration) error
}

// CartCountCache caches the per-user cart item count
type CartCountCache interface {
	GetCartCount(ctx context.Context, userID int64) (int, bool, error)
	SetCartCount(ctx context.Context, userID int64, count int, ttl time.Duration) error
	InvalidateCartCount(ctx context.Context, userID int64) error
}
