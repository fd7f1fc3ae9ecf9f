package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/storefront/merchandising/internal/application/catalog"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/infrastructure/cache"
	"github.com/storefront/merchandising/internal/infrastructure/config"
	"github.com/storefront/merchandising/internal/infrastructure/event"
	"github.com/storefront/merchandising/internal/infrastructure/logger"
	"github.com/storefront/merchandising/internal/infrastructure/persistence"
	"github.com/storefront/merchandising/internal/infrastructure/storage"
	"github.com/storefront/merchandising/internal/infrastructure/telemetry"
	"github.com/storefront/merchandising/internal/interfaces/http/handler"
	"github.com/storefront/merchandising/internal/interfaces/http/middleware"
	"github.com/storefront/merchandising/internal/interfaces/http/router"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting merchandising service",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log.Named("telemetry"))
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, tracerProvider, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log.Named("telemetry")); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	placementRepo := persistence.NewGormPlacementRepository(db.DB)
	productCatalog := persistence.NewGormProductCatalog(db.DB)

	// Redis serializes edits across instances; a single dev instance may
	// run on in-process locks
	lockerFactory := cache.NewLockerFactory(cfg.Redis, cfg.Placement,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	locker, closeLocker, err := lockerFactory.CreateLocker()
	if err != nil {
		log.Fatal("Failed to initialize keyed locker", zap.Error(err))
	}
	defer func() {
		if err := closeLocker(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()

	uploader, err := newMediaUploader(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize media storage", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)

	categoryService := catalogapp.NewCategoryService(categoryRepo, productCatalog, locker, log.Named("category_service"))
	categoryService.SetEventPublisher(eventBus)

	placementService := catalogapp.NewPlacementService(
		placementRepo,
		categoryRepo,
		uploader,
		locker,
		catalog.PlacementCapacity{
			Homepage: cfg.Placement.HomepageCapacity,
			Sidebar:  cfg.Placement.SidebarCapacity,
		},
		log.Named("placement_service"),
		catalogapp.WithSessionIdleTTL(cfg.Placement.SessionIdleTTL),
	)

	deletedHandler := catalogapp.NewCategoryDeletedHandler(placementService, log.Named("category_deleted"))
	if cfg.Event.ForwardEnabled {
		forwarder, err := event.DialRabbitMQForwarder(
			cfg.Event.RabbitMQURL,
			cfg.Event.Exchange,
			cfg.App.Name,
			cfg.Event.PublishTimeout,
			log,
		)
		if err != nil {
			log.Fatal("Failed to connect event forwarder", zap.Error(err))
		}
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Error("Error closing event forwarder", zap.Error(err))
			}
		}()
		eventBus.Subscribe(forwarder)
		deletedHandler.WithNotifier(forwarder)
		log.Info("Forwarding domain events", zap.String("exchange", cfg.Event.Exchange))
	}
	eventBus.Subscribe(deletedHandler)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	middleware.SetupValidator()

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
		"database": db.Ping,
	})

	ginMode := gin.DebugMode
	if cfg.App.Env == "production" {
		ginMode = gin.ReleaseMode
	}
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	// tracing runs before the request logger so log entries carry the trace id
	chain := []gin.HandlerFunc{logger.Recovery(log), middleware.RequestID()}
	chain = append(chain, middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    tracerProvider.Provider(),
		Enabled:     tracerProvider.Enabled(),
	})...)
	chain = append(chain, logger.GinMiddleware(log))

	engine, err := router.NewEngine(router.EngineConfig{
		Mode:           ginMode,
		CORS:           cors,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, systemHandler, chain...)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(router.NewMerchandisingGroup(
			handler.NewCategoryHandler(categoryService),
			handler.NewPlacementHandler(placementService, cfg.HTTP.MaxUploadSize),
			cfg.HTTP.MaxBodySize,
			middleware.Merchant(middleware.DefaultMerchantConfig()),
		)).
		Register(router.NewSystemGroup(systemHandler)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newMediaUploader builds the configured media store. The S3 bucket is
// created on first start when it does not exist.
func newMediaUploader(cfg *config.Config, log *zap.Logger) (catalog.MediaUploader, error) {
	if cfg.Storage.Provider == "stub" {
		log.Warn("Using in-memory media storage; uploads are lost on restart")
		return storage.NewStubMediaUploader(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	uploader, err := storage.NewS3MediaUploader(ctx, &cfg.Storage,
		storage.WithLogger(log.Named("media")),
		storage.WithMaxSize(cfg.HTTP.MaxUploadSize),
	)
	if err != nil {
		return nil, err
	}
	if err := uploader.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return uploader, nil
}
