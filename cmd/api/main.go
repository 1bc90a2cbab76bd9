package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"

	"github.com/certia/certia-core/internal/config"
	"github.com/certia/certia-core/internal/database"
	"github.com/certia/certia-core/internal/handlers"
	"github.com/certia/certia-core/internal/jobs"
	"github.com/certia/certia-core/internal/middleware"
	"github.com/certia/certia-core/internal/repository"
	"github.com/certia/certia-core/internal/services"
	"github.com/certia/certia-core/internal/syncer"
	"github.com/certia/certia-core/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to the local store and migrate
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to local store", "url", cfg.DatabaseURL)

	// Initialize repositories and services
	repos := repository.NewRepositories(db)
	svcs := services.NewServices(repos)

	// Initialize the sync coordinator
	remote := syncer.NewHTTPRemoteClient(cfg.RemoteURL, cfg.RemoteAPIToken)
	coordinator := syncer.NewCoordinator(cfg, repos, remote)
	if cfg.RemoteURL == "" {
		logger.Warn("REMOTE_URL not set, sync stays offline until configured")
	}

	// Initialize background worker and route scheduled sync runs through it
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "max_concurrent", worker.GetStats().MaxConcurrent)
	coordinator.SetRunner(worker)
	scheduleJobs(worker, cfg, repos)

	// Initialize handlers and router
	h := handlers.NewHandlers(svcs, coordinator, worker)
	router := setupRouter(h, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	coordinator.Stop()
	worker.Shutdown()
	logger.Info("Background worker stopped")

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Check)

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			companies := protected.Group("/companies")
			{
				companies.GET("", h.Company.Index)
				companies.POST("", h.Company.Create)
				companies.GET("/:id", h.Company.Show)
				companies.PUT("/:id", h.Company.Update)
				companies.DELETE("/:id", h.Company.Destroy)
			}

			contracts := protected.Group("/contracts")
			{
				contracts.GET("", h.Contract.Index)
				contracts.POST("", h.Contract.Create)
				contracts.GET("/:id", h.Contract.Show)
				contracts.PUT("/:id", h.Contract.Update)
				contracts.DELETE("/:id", h.Contract.Destroy)
				contracts.GET("/:id/pending_commission", h.Contract.PendingCommission)
			}

			certifications := protected.Group("/certifications")
			{
				certifications.GET("", h.Certification.Index)
				certifications.POST("", h.Certification.Create)
				certifications.GET("/:id", h.Certification.Show)
				certifications.PUT("/:id", h.Certification.Update)
				certifications.DELETE("/:id", h.Certification.Destroy)
			}

			payments := protected.Group("/payments")
			{
				payments.GET("", h.Payment.Index)
				payments.POST("", h.Payment.Create)
				payments.GET("/:id", h.Payment.Show)
				payments.GET("/:id/distributions", h.Payment.Distributions)
				payments.DELETE("/:id", h.Payment.Destroy)
			}

			sync := protected.Group("/sync")
			{
				sync.GET("/status", h.Sync.Status)
				sync.POST("/connectivity", h.Sync.SetConnectivity)
				sync.GET("/conflicts", h.Sync.Conflicts)

				// Forcing runs and settling conflicts is admin-only
				sync.POST("", middleware.RequireAdmin(), h.Sync.Trigger)
				sync.POST("/conflicts/:id/resolve", middleware.RequireAdmin(), h.Sync.ResolveConflict)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, cfg *config.Config, repos *repository.Repositories) {
	// Purge processed sync queue items past retention. The coordinator purges
	// at the end of each run too; this covers long stretches with no runs.
	worker.ScheduleEveryImmediate(24*time.Hour, func(ctx context.Context) error {
		purged, err := repos.SyncQueue.PurgeProcessedOlderThan(ctx, cfg.SyncRetention)
		if err != nil {
			return err
		}
		if purged > 0 {
			logger.Info("[Job] Purged processed sync queue items", "count", purged)
		}
		return nil
	})

	// Watch queue depth so a silently growing backlog is visible in logs
	worker.ScheduleEvery(1*time.Hour, func(ctx context.Context) error {
		pending, err := repos.SyncQueue.CountPending(ctx)
		if err != nil {
			return err
		}
		if pending > int64(cfg.SyncBatchSize) {
			logger.Warn("[Job] Sync queue backlog exceeds one batch", "pending", pending, "batch_size", cfg.SyncBatchSize)
		}
		return nil
	})

	logger.Info("Scheduled recurring jobs")
}
