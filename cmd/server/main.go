package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	syncapp "github.com/bolsas-cloud/fullsync/internal/application/sync"
	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
	"github.com/bolsas-cloud/fullsync/internal/domain/replenish"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/auth"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/cache"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/config"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/logger"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/meli"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/persistence"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/scheduler"
	"github.com/bolsas-cloud/fullsync/internal/interfaces/http/handler"
	"github.com/bolsas-cloud/fullsync/internal/interfaces/http/middleware"
	"github.com/bolsas-cloud/fullsync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting FullSync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
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
	listingRepo := persistence.NewGormListingRepository(db.DB)
	recordRepo := persistence.NewGormRecordRepository(db.DB)
	adSpendRepo := persistence.NewGormAdSpendRepository(db.DB)
	resultRepo := persistence.NewGormResultRepository(db.DB)
	runRepo := persistence.NewGormRunRepository(db.DB)
	continuationStore := persistence.NewGormContinuationStore(db.DB)
	settingsStore := persistence.NewGormSettingsStore(db.DB)

	// Redis backs the run lease and the stock-snapshot cache. When redis is
	// unreachable the process still serves with in-process fallbacks; the
	// single-run guarantee then only holds within this instance.
	var cacheStore cache.Store
	var lease pipeline.Lease

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	cancelPing()
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-memory cache and lease", zap.Error(err))
		cacheStore = cache.NewInMemoryStore()
		lease = cache.NewInMemoryLease()
	} else {
		cacheStore = cache.NewRedisStoreWithClient(redisClient, "fullsync:")
		lease = cache.NewRedisLease(redisClient)
		log.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr()))
	}

	// Initialize marketplace client
	meliClient, err := meli.NewClient(meli.Config{
		APIBaseURL:   cfg.Marketplace.APIBaseURL,
		AccessToken:  cfg.Marketplace.AccessToken,
		SellerID:     cfg.Marketplace.SellerID,
		Timeout:      time.Duration(cfg.Marketplace.TimeoutSeconds) * time.Second,
		MaxRetries:   cfg.Marketplace.MaxRetries,
		RetryBackoff: cfg.Marketplace.RetryBackoff,
		BatchSize:    cfg.Marketplace.BatchSize,
		BatchDelay:   cfg.Marketplace.BatchDelay,
	}, log)
	if err != nil {
		log.Fatal("Failed to create marketplace client", zap.Error(err))
	}
	meliClient.UseSellerIDStore(settingsStore)

	// Assemble computation parameters
	replenishCfg := replenish.Config{
		LeadTimeDays:   cfg.Replenish.LeadTimeDays,
		ServiceLevel:   cfg.Replenish.ServiceLevel,
		EvalWindowDays: cfg.Replenish.EvalWindowDays,
		Policy:         demandPolicy(cfg.Replenish.DemandPolicy),
	}
	stageCfg := syncapp.StageConfig{
		OrderLookbackDays: cfg.Pipeline.OrderLookbackDays,
		SalesWindowDays:   cfg.Pipeline.SalesWindowDays,
		Replenish:         replenishCfg,
	}

	// Initialize pipeline stages and orchestrator
	stages := []pipeline.Stage{
		syncapp.NewOrdersStage(meliClient, recordRepo, stageCfg, log),
		syncapp.NewAdsStage(meliClient, adSpendRepo, stageCfg, log),
		syncapp.NewInventoryIDStage(meliClient, listingRepo, log),
		syncapp.NewListingsStage(meliClient, listingRepo, recordRepo, resultRepo, settingsStore, stageCfg, log),
	}

	orchestrator := syncapp.NewOrchestrator(
		syncapp.OrchestratorConfig{
			StageDelay:             cfg.Pipeline.StageDelay,
			LeaseTTL:               cfg.Pipeline.LeaseTTL,
			MaxConsecutiveFailures: cfg.Pipeline.MaxConsecutiveFailures,
		},
		runRepo,
		continuationStore,
		lease,
		settingsStore,
		stages,
		log,
	)

	// Start the continuation driver (if enabled)
	if cfg.Pipeline.Enabled {
		driver := scheduler.NewDriver(
			scheduler.DriverConfig{PollInterval: cfg.Pipeline.PollInterval},
			continuationStore,
			orchestrator,
			log,
		)
		if err := driver.Start(context.Background()); err != nil {
			log.Fatal("Failed to start continuation driver", zap.Error(err))
		}
		defer func() {
			if err := driver.Stop(context.Background()); err != nil {
				log.Error("Error stopping continuation driver", zap.Error(err))
			}
		}()
		log.Info("Continuation driver started",
			zap.Duration("poll_interval", cfg.Pipeline.PollInterval),
		)
	}

	// Initialize on-demand sync service
	syncService := syncapp.NewService(
		meliClient,
		listingRepo,
		recordRepo,
		adSpendRepo,
		resultRepo,
		settingsStore,
		cacheStore,
		syncapp.ServiceConfig{
			StageConfig:   stageCfg,
			StockCacheTTL: cfg.Pipeline.StockCacheTTL,
		},
		log,
	)

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	syncHandler := handler.NewSyncHandler(syncService)
	pipelineHandler := handler.NewPipelineHandler(orchestrator)
	replenishmentHandler := handler.NewReplenishmentHandler(resultRepo)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router with custom middleware
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS())

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("", syncHandler.Execute)

	pipelineRoutes := router.NewDomainGroup("pipeline", "/pipeline")
	pipelineRoutes.POST("/run", pipelineHandler.TriggerRun)
	pipelineRoutes.GET("/status", pipelineHandler.Status)

	replenishmentRoutes := router.NewDomainGroup("replenishment", "/replenishment")
	replenishmentRoutes.GET("", replenishmentHandler.List)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(syncRoutes).
		Register(pipelineRoutes).
		Register(replenishmentRoutes).
		Register(systemRoutes)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
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

// demandPolicy maps the configured policy name to its implementation
func demandPolicy(name string) replenish.DemandRatePolicy {
	if name == "full_window" {
		return replenish.FullWindowPolicy{}
	}
	return replenish.DaysWithSalesPolicy{}
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
