package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/notifier"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Observ.LogOptions()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront")

	if cfg.Observ.JaegerEndpoint != "" {
		tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint, cfg.Observ.TraceSampleRatio)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Error shutting down tracer", zap.Error(err))
			}
		}()
	} else {
		logger.Info("Tracing disabled")
	}

	ctx := context.Background()
	var checks []api.ReadinessCheck

	var repo store.Repository
	if cfg.Database.InMemory() {
		repo = store.NewMemoryStore()
		logger.Warn("Using in-memory store, data is lost on exit")
	} else {
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		repo = db
		checks = append(checks, api.ReadinessCheck{Name: "postgres", Check: db.Ping})
		logger.Info("Database connected")
	}

	// Redis only guards checkout and caches counts; run without it if unreachable.
	var (
		guard service.CheckoutGuard
		cache service.CartCountCache
	)
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, checkout lock and cart count cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		guard, cache = redisClient, redisClient
		checks = append(checks, api.ReadinessCheck{Name: "redis", Check: redisClient.Ping})
		logger.Info("Redis connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrderEvents)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)
	logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

	var mailer notifier.Notifier = notifier.NewLogNotifier(logger)
	if cfg.Email.SenderEmail != "" {
		ses, err := notifier.NewSESNotifier(ctx, cfg.Email)
		if err != nil {
			logger.Fatal("Failed to initialize SES notifier", zap.Error(err))
		}
		mailer = ses
		logger.Info("SES notifier initialized", zap.String("sender", cfg.Email.SenderEmail))
	}

	orderService := service.NewOrderService(repo, eventPublisher)
	services := api.Services{
		Cart: service.NewCartService(repo, cache, cfg.Business.CartCountTTL),
		Checkout: service.NewCheckoutService(repo, guard, cache, eventPublisher, service.CheckoutOptions{
			LockTTL:        cfg.Business.CheckoutLockTTL,
			IdempotencyTTL: cfg.Business.IdempotencyTTL,
		}),
		Orders:  orderService,
		Catalog: service.NewCatalogService(repo),
		Admin:   service.NewAdminService(repo, orderService, cfg.Business.LowStockThreshold),
	}

	if cfg.Admin.Token == "" {
		logger.Warn("ADMIN_TOKEN is empty, admin routes are locked")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	notificationConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrderEvents, cfg.Kafka.NotificationsGroup,
		cfg.Kafka.RetryMinBackoff, cfg.Kafka.RetryMaxBackoff)
	notificationWorker := worker.NewNotificationWorker(notificationConsumer, repo, mailer)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Notification worker error", zap.Error(err))
		}
	}()

	inventoryConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrderEvents, cfg.Kafka.InventoryGroup,
		cfg.Kafka.RetryMinBackoff, cfg.Kafka.RetryMaxBackoff)
	inventoryWorker := worker.NewInventoryWorker(inventoryConsumer, repo, cfg.Business.LowStockThreshold)
	go func() {
		if err := inventoryWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Inventory worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(services, cfg.Admin.Token, checks...)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := notificationWorker.Stop(); err != nil {
		logger.Warn("Error stopping notification worker", zap.Error(err))
	}
	if err := inventoryWorker.Stop(); err != nil {
		logger.Warn("Error stopping inventory worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
