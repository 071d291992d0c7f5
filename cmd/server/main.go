package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/broker"
	"storefront-service/internal/media"
	"storefront-service/internal/notify"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/sse"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	tp, err := util.InitTracer("storefront-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if err := runMigrations(db.GetDB().DB, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Migrations applied")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		cfg.Business.CartTTL, cfg.Business.CheckoutSessionTTL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))

	eventPublisher := broker.NewEventPublisher(producer)

	uploader, err := media.NewS3Uploader(context.Background(), media.Options{
		Bucket:     cfg.Media.Bucket,
		Region:     cfg.Media.Region,
		Endpoint:   cfg.Media.Endpoint,
		PublicBase: cfg.Media.PublicBase,
		Timeout:    cfg.Media.Timeout,
	})
	if err != nil {
		logger.Fatal("Failed to initialize screenshot storage", zap.Error(err))
	}

	var dispatcher service.Dispatcher
	if cfg.Notify.WebhookURL != "" {
		dispatcher = notify.NewWebhookDispatcher(cfg.Notify.WebhookURL, cfg.Notify.WebhookToken, cfg.Notify.Timeout)
		logger.Info("WhatsApp gateway configured")
	} else {
		dispatcher = notify.NewLogDispatcher()
		logger.Warn("No WhatsApp gateway configured, notifications are only logged")
	}

	auth, err := service.NewAdminAuthService(cfg.Admin.Password, cfg.Admin.PasswordHash, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	if err != nil {
		logger.Fatal("Failed to initialize admin auth", zap.Error(err))
	}

	notifications := service.NewNotificationService(db, dispatcher, service.NotificationConfig{
		AdminNumber: cfg.Notify.AdminNumber,
		CountryCode: cfg.Notify.CountryCode,
		MaxAttempts: cfg.Business.NotificationAttempts,
		BatchSize:   cfg.Business.OutboxBatchSize,
		BaseBackoff: cfg.Business.NotificationBackoff,
	})

	customers, err := service.NewCustomerAuthService(db, redisClient, notifications, service.CustomerAuthConfig{
		Secret:         cfg.Customer.JWTSecret,
		TokenTTL:       cfg.Customer.TokenTTL,
		CodeTTL:        cfg.Customer.CodeTTL,
		ResendInterval: cfg.Customer.CodeResendInterval,
		MaxAttempts:    cfg.Customer.MaxCodeAttempts,
	})
	if err != nil {
		logger.Fatal("Failed to initialize customer auth", zap.Error(err))
	}

	services := api.Services{
		Catalog: service.NewCatalogService(db),
		Carts:   service.NewCartService(db, redisClient),
		Checkout: service.NewCheckoutService(db, redisClient, uploader, eventPublisher, notifications, service.CheckoutConfig{
			ShippingFee:    cfg.Business.ShippingFee,
			LockTTL:        cfg.Business.CheckoutLockTTL,
			IdempotencyTTL: cfg.Business.IdempotencyTTL,
			Payment: service.PaymentConfig{
				PayeeHandle: cfg.Payment.PayeeHandle,
				PayeeName:   cfg.Payment.PayeeName,
				Currency:    cfg.Payment.Currency,
				QRBaseURL:   cfg.Payment.QRBaseURL,
			},
		}),
		Orders:        service.NewOrderService(db, eventPublisher, notifications),
		Verifications: service.NewVerificationService(db, uploader, eventPublisher, notifications),
		Tickets:       service.NewTicketService(db, eventPublisher),
		Accounts:      service.NewAccountService(db),
		Notifications: notifications,
		Auth:          auth,
		Customers:     customers,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	hub := sse.NewHub()
	feedConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	feedWorker := worker.NewFeedWorker(feedConsumer, hub)
	go func() {
		if err := feedWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Feed worker error", zap.Error(err))
		}
	}()

	outboxWorker := worker.NewOutboxWorker(notifications, cfg.Business.OutboxPollInterval)
	go func() {
		if err := outboxWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Outbox worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(services, hub, map[string]api.Pinger{
		"postgres": db,
		"redis":    redisClient,
	})
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

	workerCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := feedWorker.Stop(); err != nil {
		logger.Error("Failed to stop feed worker", zap.Error(err))
	}

	logger.Info("Server exited")
}

// runMigrations applies pending migrations from path
func runMigrations(db *sql.DB, path string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}
