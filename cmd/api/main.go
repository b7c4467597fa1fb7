package main

import (
	"context"
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prestadia/prestadia-api/internal/config"
	"github.com/prestadia/prestadia-api/internal/database"
	"github.com/prestadia/prestadia-api/internal/handlers"
	"github.com/prestadia/prestadia-api/internal/jobs"
	"github.com/prestadia/prestadia-api/internal/middleware"
	"github.com/prestadia/prestadia-api/internal/repository"
	"github.com/prestadia/prestadia-api/internal/services"
	"github.com/prestadia/prestadia-api/internal/storage"
	"github.com/prestadia/prestadia-api/pkg/logger"

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

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize storage for payment receipts
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage")

	// Schedule cache is optional: without Redis, previews recompute on every request
	var scheduleCache *repository.ScheduleCache
	if cfg.RedisAddr != "" {
		scheduleCache = repository.NewScheduleCache(cfg.RedisAddr)
		if err := scheduleCache.Ping(context.Background()); err != nil {
			logger.Warn("Redis unavailable, schedule caching disabled", "error", err)
			scheduleCache = nil
		} else {
			logger.Info("Connected to Redis", "addr", cfg.RedisAddr)
		}
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, scheduleCache, cfg, db)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, store)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	if scheduleCache != nil {
		scheduleCache.Close()
	}

	// Flush Sentry events before exit
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
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Prometheus metrics (scraped internally, outside the API prefix)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Authentication (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Admin-only routes
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				// User management (admin only; PUT /users/:user_id is below for admin or owner)
				admin.POST("/users", h.User.Create)
				admin.DELETE("/users/:user_id", h.User.Delete)
				admin.PUT("/users/:user_id/toggle_status", h.User.ToggleStatus)
				admin.POST("/users/:user_id/restore", h.User.Restore)

				// Business settings and calendar (admin only)
				admin.PUT("/business", h.Business.Update)
				admin.PUT("/business/working_days", h.Business.UpdateWorkingDays)
				admin.POST("/business/holidays", h.Business.AddHoliday)
				admin.DELETE("/business/holidays/:holiday_id", h.Business.RemoveHoliday)

				// Loan lifecycle transitions (admin only)
				admin.POST("/loans/:loan_id/close", h.Loan.Close)
				admin.POST("/loans/:loan_id/cancel", h.Loan.Cancel)
				admin.POST("/loans/:loan_id/default", h.Loan.Default)
				admin.POST("/loans/:loan_id/reopen", h.Loan.Reopen)

				// Payment reversal (admin only)
				admin.POST("/installments/:installment_id/payments/undo", h.Payment.Undo)

				// Manual penalty recalculation, audit trail, worker status (admin only)
				admin.POST("/penalties/recalculate", h.Payment.RecalculatePenalties)
				admin.GET("/audits", h.Audit.Index)
				admin.GET("/jobs/status", h.Job.Status)
			}

			// Collector + Admin routes (day-to-day portfolio work)
			collectorAdmin := protected.Group("")
			collectorAdmin.Use(middleware.RequireRole("admin", "collector"))
			{
				collectorAdmin.GET("/users", h.User.Index)

				// Client management
				clients := collectorAdmin.Group("/clients")
				{
					clients.GET("", h.Client.Index)
					clients.POST("", h.Client.Create)
					clients.GET("/:client_id", h.Client.Show)
					clients.PUT("/:client_id", h.Client.Update)
					clients.DELETE("/:client_id", h.Client.Delete)
					clients.GET("/:client_id/loans", h.Client.Loans)
				}

				// Loan origination, schedules, and simulations
				loans := collectorAdmin.Group("/loans")
				{
					loans.GET("", h.Loan.Index)
					loans.GET("/stats", h.Loan.Stats)
					loans.POST("", h.Loan.Create)
					loans.POST("/preview", h.Loan.Preview)
					loans.POST("/due_dates", h.Loan.DueDates)
					loans.GET("/:loan_id", h.Loan.Show)
					loans.GET("/:loan_id/schedule", h.Loan.Schedule)
					loans.GET("/:loan_id/ledger", h.Loan.Ledger)
					loans.GET("/:loan_id/penalty_preview", h.Loan.PenaltyPreview)
				}

				// Payment posting and receipts
				installments := collectorAdmin.Group("/installments/:installment_id")
				{
					installments.GET("", h.Payment.Show)
					installments.POST("/payments", h.Payment.Post)
					installments.POST("/upload_receipt", h.Payment.UploadReceipt)
					installments.GET("/download_receipt", h.Payment.DownloadReceipt)
				}
			}

			// All authenticated users
			protected.GET("/business", h.Business.Show)
			protected.GET("/business/holidays", h.Business.Holidays)
			protected.GET("/users/:user_id", middleware.RequireAdminOrOwner(), h.User.Show)
			// Profile update: admin or profile owner only
			protected.PUT("/users/:user_id", middleware.RequireAdminOrOwner(), h.User.Update)
			// User can change their own password
			protected.PATCH("/users/:user_id/change_password", h.User.ChangePassword)
			protected.PATCH("/users/:user_id/update_locale", h.User.UpdateLocale)

			// Notifications (users can manage their own notifications)
			// Static routes first so "mark_all_as_read" is not matched as :notification_id
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.Index)
				notifications.GET("/unread_count", h.Notification.UnreadCount)
				notifications.POST("/mark_all_as_read", h.Notification.MarkAllAsRead)
				notifications.POST("/:notification_id/mark_as_read", h.Notification.Update)
				notifications.GET("/:notification_id", h.Notification.Show)
				notifications.DELETE("/:notification_id", h.Notification.Delete)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	// Recalculate overdue penalties. Runs once at startup so restarts don't skip a cycle.
	interval := time.Duration(cfg.PenaltyIntervalHours) * time.Hour
	worker.ScheduleEveryImmediate(interval, func(ctx context.Context) error {
		logger.Info("[Job] Recalculating overdue penalties...")
		return svcs.Payment.RecalculatePenalties(ctx)
	})

	logger.Info("Scheduled recurring jobs", "penalty_interval", interval)
}
