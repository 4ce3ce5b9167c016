package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	creditapp "github.com/fiado/backend/internal/application/credit"
	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/auth"
	"github.com/fiado/backend/internal/infrastructure/cache"
	"github.com/fiado/backend/internal/infrastructure/config"
	"github.com/fiado/backend/internal/infrastructure/event"
	"github.com/fiado/backend/internal/infrastructure/export"
	"github.com/fiado/backend/internal/infrastructure/idgen"
	"github.com/fiado/backend/internal/infrastructure/logger"
	"github.com/fiado/backend/internal/infrastructure/storage"
	"github.com/fiado/backend/internal/infrastructure/telemetry"
	"github.com/fiado/backend/internal/interfaces/http/handler"
	"github.com/fiado/backend/internal/interfaces/http/middleware"
	"github.com/fiado/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Fiado Credit API
//	@version		1.0
//	@description	Installment debt allocation for fiado point-of-sale credit
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Telemetry: traces, metrics, log export and profiling
	tel, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = tel.logs.BridgeLogger(log, zapcore.InfoLevel)

	log.Info("Starting Fiado Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.String("store", cfg.Store.Driver),
	)

	// Credit store
	store, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to open credit store", zap.Error(err))
	}
	defer store.close()

	// Idempotency replay store shared by payment requests and event handlers
	replay, err := cache.NewReplayStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := replay.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()
	idempotency := shared.IdempotencyConfig{TTL: cfg.Credit.IdempotencyTTL, Enabled: true}

	// Event bus with the audit trail
	bus := event.NewInMemoryEventBus(log)
	audit := creditapp.NewPaymentAuditHandler(log)
	bus.Subscribe(event.NewDedupHandler(audit, replay, idempotency, log), audit.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	receipts, err := idgen.NewSnowflakeReceiptGenerator(cfg.Credit.SnowflakeNode)
	if err != nil {
		log.Fatal("Failed to create receipt number generator", zap.Error(err))
	}

	creditMetrics, err := telemetry.NewCreditMetrics(tel.meter)
	if err != nil {
		log.Warn("Credit metrics unavailable", zap.Error(err))
		creditMetrics = nil
	}

	// Application services
	tol := credit.NewTolerance(cfg.Credit.Epsilon)
	paymentService := creditapp.NewPaymentService(store.store, credit.NewAllocationEngine(tol), receipts,
		creditapp.WithPaymentConfig(creditapp.PaymentServiceConfig{
			MaxRetries:   cfg.Credit.MaxRetries,
			StoreTimeout: cfg.Credit.StoreTimeout,
			Idempotency:  idempotency,
		}),
		creditapp.WithReplayStore(replay),
		creditapp.WithEventPublisher(bus),
		creditapp.WithCreditMetrics(creditMetrics),
		creditapp.WithPaymentLogger(log),
	)

	installmentOpts := []creditapp.InstallmentServiceOption{
		creditapp.WithPortfolioRenderer(export.NewWorkbookRenderer()),
		creditapp.WithInstallmentLogger(log),
	}
	if cfg.Export.S3Enabled {
		exportStorage, err := storage.NewS3ExportStorage(&cfg.Export,
			storage.WithLogger(log),
			storage.WithURLExpiry(cfg.Export.URLExpiry),
		)
		if err != nil {
			log.Fatal("Failed to initialize export storage", zap.Error(err))
		}
		if err := exportStorage.EnsureBucket(ctx); err != nil {
			log.Warn("Export bucket check failed", zap.String("bucket", exportStorage.Bucket()), zap.Error(err))
		}
		installmentOpts = append(installmentOpts, creditapp.WithExportStorage(exportStorage, cfg.Export.URLExpiry))
	}
	installmentService := creditapp.NewInstallmentService(store.store, paymentService, installmentOpts...)
	clientService := creditapp.NewClientService(store.store, tol, cfg.Credit.StoreTimeout, log)
	saleService := creditapp.NewSaleService(store.store, tol, cfg.Credit.StoreTimeout, log)

	// HTTP
	middleware.SetupValidator()

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	systemHandler := handler.NewSystemHandler(version)
	if store.ping != nil {
		systemHandler.AddCheck("database", store.ping)
	}

	engine := router.NewEngine(router.EngineConfig{
		Logger:      log,
		HTTP:        cfg.HTTP,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     tel.tracer.IsEnabled(),
		Profiling:   tel.profiler.IsEnabled(),
		Meter:       tel.meter,
		RateLimiter: rateLimiter,
		JWTService:  auth.NewJWTService(cfg.JWT),
		System:      systemHandler,
		Credit: router.CreditHandlers{
			Payments:     handler.NewPaymentHandler(paymentService),
			Clients:      handler.NewClientHandler(clientService),
			Sales:        handler.NewSaleHandler(saleService),
			Installments: handler.NewInstallmentHandler(installmentService),
		},
	})

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	tel.shutdown(shutdownCtx, log)

	log.Info("Server exited gracefully")
}
