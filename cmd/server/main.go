package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/notification"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Storefront Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)

	// Checkout idempotency gate. Redis is cooperative only: when it is
	// unreachable the unique order reference still guards correctness, so
	// fall back to the in-process store instead of refusing to start.
	var gate shared.IdempotencyStore
	redisGate, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory idempotency gate",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Error(err))
		gate = cache.NewInMemoryIdempotencyStore()
	} else {
		log.Info("Redis idempotency gate connected", zap.String("addr", cfg.Redis.Addr()))
		gate = redisGate
	}
	defer func() {
		if err := gate.Close(); err != nil {
			log.Error("Error closing idempotency gate", zap.Error(err))
		}
	}()

	// Pricing engine over the configured tax rate
	taxRate, err := decimal.NewFromString(cfg.Checkout.TaxRate)
	if err != nil {
		log.Fatal("Invalid checkout.tax_rate", zap.String("value", cfg.Checkout.TaxRate), zap.Error(err))
	}
	pricing, err := order.NewPricingEngine(taxRate)
	if err != nil {
		log.Fatal("Failed to create pricing engine", zap.Error(err))
	}
	tolerance, err := decimal.NewFromString(cfg.Checkout.PriceTolerance)
	if err != nil {
		log.Fatal("Invalid checkout.price_tolerance", zap.String("value", cfg.Checkout.PriceTolerance), zap.Error(err))
	}

	// Initialize application services
	orderService := checkout.NewOrderService(orderRepo, productRepo, pricing, gate, log, checkout.OrderServiceConfig{
		PriceTolerance: tolerance,
		InvoicePrefix:  cfg.Checkout.InvoicePrefix,
		SessionTTL:     cfg.Checkout.SessionTTL,
		NotifyTimeout:  cfg.Checkout.NotifyTimeout,
	})

	if cfg.SMTP.Enabled {
		mailer := notification.NewSMTPMailer(cfg.SMTP, log)
		orderService.SetConfirmationSender(mailer)
		log.Info("Order confirmation mailer enabled", zap.String("host", cfg.SMTP.Host))
	}

	// Payment widget gateway
	adapter, err := payment.NewWidgetAdapter(&payment.Config{
		ChannelID:    cfg.Gateway.ChannelID,
		ScriptURL:    cfg.Gateway.ScriptURL,
		SharedSecret: cfg.Gateway.SharedSecret,
		SuccessURL:   cfg.Gateway.SuccessURL,
		FailureURL:   cfg.Gateway.FailureURL,
		CallbackURL:  cfg.Gateway.CallbackURL,
		LoadTimeout:  cfg.Gateway.LoadTimeout,
		CurrencyCode: cfg.Gateway.CurrencyCode,
	}, log)
	if err != nil {
		log.Fatal("Invalid gateway configuration", zap.Error(err))
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			log.Error("Error closing gateway adapter", zap.Error(err))
		}
	}()

	// Probe the hosted widget script. A failed probe leaves the gateway
	// unavailable until an explicit retry; checkout still accepts orders.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.Gateway.LoadTimeout)
	if err := adapter.Load(loadCtx); err != nil {
		log.Warn("Payment widget script unavailable at startup", zap.Error(err))
	} else {
		log.Info("Payment widget script loaded", zap.String("channel", cfg.Gateway.ChannelID))
	}
	cancelLoad()

	reconService := checkout.NewReconciliationService(orderRepo, log)
	reconService.SetAdvisoryPublisher(adapter)

	jwtService := auth.NewJWTService(cfg.JWT)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.JWTAuthMiddleware(jwtService))

	// Health endpoint lives outside API versioning and authentication
	systemHandler := handler.NewSystemHandler(db, version)
	systemHandler.RegisterRoutes(engine)

	r := router.NewRouter(engine)
	r.Register(handler.NewOrderHandler(orderService)).
		Register(handler.NewCheckoutHandler(orderService, reconService, adapter)).
		Register(handler.NewWebhookHandler(reconService, adapter))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
