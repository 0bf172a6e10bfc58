package worker

import (
	"context"
	"errors"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/notifier"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker emails customers about their orders
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	repo         store.Repository
	notifier     notifier.Notifier
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker. consumer may be
// nil when the handlers are driven directly.
func NewNotificationWorker(
	consumer *broker.Consumer,
	repo store.Repository,
	n notifier.Notifier,
) *NotificationWorker {
	w := &NotificationWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		repo:         repo,
		notifier:     n,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnOrderPlaced(w.HandleOrderPlaced)
	w.eventHandler.OnOrderStatusChanged(w.HandleOrderStatusChanged)
	return w
}

// Start consumes until ctx is cancelled
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the notification worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker...")
	return w.consumer.Close()
}

// HandleOrderPlaced sends the order confirmation
func (w *NotificationWorker) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return w.deliver(ctx, event.BaseEvent, event.UserID, func(c *models.Customer) notifier.Message {
		return notifier.OrderPlacedMessage(c, event)
	})
}

// HandleOrderStatusChanged sends the status update
func (w *NotificationWorker) HandleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return w.deliver(ctx, event.BaseEvent, event.UserID, func(c *models.Customer) notifier.Message {
		return notifier.StatusChangedMessage(c, event)
	})
}

// deliver sends at most one message per event id. A failed send is returned
// so the consumer retries the same message before committing it.
func (w *NotificationWorker) deliver(
	ctx context.Context,
	event models.BaseEvent,
	userID int64,
	render func(*models.Customer) notifier.Message,
) error {
	processed, err := w.repo.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		w.logger.Debug("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	customer, err := w.repo.GetCustomer(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.Warn("Customer not found, skipping notification",
			zap.String("event_id", event.EventID),
			zap.Int64("user_id", userID))
		util.NotificationsSentTotal.WithLabelValues(event.EventType, "skipped").Inc()
		return w.repo.MarkEventProcessed(ctx, event.EventID, event.EventType)
	}
	if err != nil {
		return err
	}

	if customer.Email == "" {
		util.NotificationsSentTotal.WithLabelValues(event.EventType, "skipped").Inc()
		return w.repo.MarkEventProcessed(ctx, event.EventID, event.EventType)
	}

	if err := w.notifier.Send(ctx, render(customer)); err != nil {
		util.NotificationsSentTotal.WithLabelValues(event.EventType, "failed").Inc()
		w.logger.Error("Failed to send notification",
			zap.String("event_id", event.EventID),
			zap.Error(err))
		return err
	}

	util.NotificationsSentTotal.WithLabelValues(event.EventType, "sent").Inc()
	w.logger.Info("Notification sent",
		zap.String("event_type", event.EventType),
		zap.Int64("user_id", userID))
	return w.repo.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// InventoryWorker watches stock levels after orders are placed
type InventoryWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	repo         store.Repository
	threshold    int
	logger       *zap.Logger
}

// NewInventoryWorker creates a new inventory worker
func NewInventoryWorker(consumer *broker.Consumer, repo store.Repository, threshold int) *InventoryWorker {
	w := &InventoryWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		repo:         repo,
		threshold:    threshold,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnOrderPlaced(w.HandleOrderPlaced)
	return w
}

// Start consumes until ctx is cancelled
func (w *InventoryWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting inventory worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the inventory worker
func (w *InventoryWorker) Stop() error {
	w.logger.Info("Stopping inventory worker...")
	return w.consumer.Close()
}

// HandleOrderPlaced alerts on purchased products left at or below the threshold
func (w *InventoryWorker) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ids := make([]int64, 0, len(event.Items))
	for _, item := range event.Items {
		ids = append(ids, item.ProductID)
	}

	low, err := w.LowStock(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range low {
		util.LowStockAlertsTotal.Inc()
		w.logger.Warn("Low stock",
			zap.Int64("order_id", event.OrderID),
			zap.Int64("product_id", p.ID),
			zap.String("product", p.Name),
			zap.Int("stock", p.Stock))
	}
	return nil
}

// LowStock returns the products among ids with stock at or below the threshold
func (w *InventoryWorker) LowStock(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	products, err := w.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var low []models.Product
	for _, p := range products {
		if p.Stock <= w.threshold {
			low = append(low, p)
		}
	}
	return low, nil
}
