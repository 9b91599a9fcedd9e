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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sjperalta/roimob-api/docs" // Swagger docs
	"github.com/sjperalta/roimob-api/internal/config"
	"github.com/sjperalta/roimob-api/internal/database"
	"github.com/sjperalta/roimob-api/internal/handlers"
	"github.com/sjperalta/roimob-api/internal/integrations/bcb"
	"github.com/sjperalta/roimob-api/internal/jobs"
	"github.com/sjperalta/roimob-api/internal/middleware"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/sjperalta/roimob-api/internal/services"
	"github.com/sjperalta/roimob-api/internal/storage"
	"github.com/sjperalta/roimob-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title ROImob API
// @version 1.0
// @description REST API for real-estate investment projections: payment plans, exit strategies and shared client reports
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email suporte@roimob.com.br

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8081
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Environment)

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

	if !cfg.EnableEmailNotifications || cfg.ResendAPIKey == "" || cfg.FromEmail == "" {
		logger.Warn("Share-link emails disabled: set ENABLE_EMAIL_NOTIFICATIONS, RESEND_API_KEY and FROM_EMAIL to send them")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)

	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	var fetcher services.IndexFetcher
	if cfg.Index.Enabled {
		fetcher = bcb.NewClient(cfg.Index.BaseURL, cfg.Index.SOAPURL, cfg.Index.Timeout, logger.NewLogrus(cfg.Index.LogLevel))
	} else {
		logger.Warn("Index collection disabled: INDEX_COLLECTION_ENABLED is false")
	}

	scheduler := jobs.NewScheduler(worker, cfg.Index.Location())
	svcs := services.NewServices(repos, worker, scheduler, store, cfg, fetcher)

	scheduleJobs(worker, scheduler, svcs, cfg)
	scheduler.Start()

	h := handlers.NewHandlers(svcs)
	router := setupRouter(h, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	scheduler.Stop(ctx)
	worker.Shutdown()
	logger.Info("Background jobs stopped")

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Index)

		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Shared reports open without an account
		public := v1.Group("/public/reports")
		{
			public.GET("/:public_id", h.Share.Public)
			public.GET("/:public_id/pdf", h.Share.PublicPDF)
		}

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		protected.Use(middleware.RequireRole("admin", "broker"))
		{
			protected.GET("/auth/me", h.Auth.Me)
			protected.GET("/dashboard/stats", h.Dashboard.Stats)

			users := protected.Group("/users")
			{
				users.PATCH("/profile", h.User.UpdateProfile)
				users.PATCH("/company", h.User.UpdateCompany)
				users.PATCH("/password", h.User.ChangePassword)
			}

			projections := protected.Group("/projections")
			{
				projections.POST("/preview", h.Projection.Preview)
				projections.POST("/new", h.Projection.Create)
				projections.POST("", h.Projection.Create)
				projections.GET("", h.Projection.Index)
				projections.GET("/:id", h.Projection.Show)
				projections.PATCH("/:id", h.Projection.Update)
				projections.DELETE("/:id", h.Projection.Delete)
				projections.DELETE("/:id/calculations", h.Projection.DeleteCalculations)
				projections.POST("/:id/recalculate", h.Projection.Recalculate)
				projections.POST("/:id/publish", h.Projection.Publish)
				projections.POST("/:id/archive", h.Projection.Archive)
				projections.POST("/:id/restore", h.Projection.Restore)
				projections.GET("/:id/ledger", h.Projection.Ledger)
				projections.GET("/:id/report", h.Projection.Report)

				projections.POST("/:id/share", h.Share.Create)
				projections.GET("/:id/share", h.Share.Status)
				projections.DELETE("/:id/share", h.Share.Revoke)
				projections.POST("/:id/share/email", h.Share.Email)
			}

			clients := protected.Group("/clients")
			{
				clients.GET("", h.Client.Index)
				clients.POST("", h.Client.Create)
				clients.GET("/:id", h.Client.Show)
				clients.PATCH("/:id", h.Client.Update)
				clients.PUT("/:id", h.Client.Update)
				clients.DELETE("/:id", h.Client.Delete)
			}

			properties := protected.Group("/properties")
			{
				properties.GET("", h.Property.Index)
				properties.POST("", h.Property.Create)
				properties.GET("/:id", h.Property.Show)
				properties.PATCH("/:id", h.Property.Update)
				properties.PUT("/:id", h.Property.Update)
				properties.DELETE("/:id", h.Property.Delete)
			}

			protected.GET("/indexes", h.Index.Index)
			protected.GET("/indexes/summary", h.Index.Summary)
			protected.GET("/indexes/:type", h.Index.Show)

			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("/indexes/collect", h.Index.Collect)
				admin.GET("/jobs/stats", h.Job.Stats)
				admin.POST("/jobs/:name/trigger", h.Job.Trigger)
				admin.GET("/audits", h.Audit.Index)

				admin.GET("/admin/stats", h.Dashboard.AdminStats)
				admin.GET("/admin/users", h.User.Index)
				admin.POST("/admin/users", h.User.Create)
				admin.GET("/admin/users/:id", h.User.Show)
				admin.PATCH("/admin/users/:id", h.User.Update)
				admin.DELETE("/admin/users/:id", h.User.Delete)
				admin.POST("/admin/reset-user-password", h.User.ResetPassword)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, scheduler *jobs.Scheduler, svcs *services.Services, cfg *config.Config) {
	if cfg.Index.Enabled {
		if err := scheduler.Add("index_history", cfg.Index.MonthlyCron, func(ctx context.Context) error {
			logger.Info("[Job] Collecting index history...")
			_, err := svcs.Index.CollectHistory(ctx)
			return err
		}); err != nil {
			logger.Error("Invalid monthly index cron", "spec", cfg.Index.MonthlyCron, "error", err)
		}

		if err := scheduler.Add("index_refresh", cfg.Index.WeeklyCron, func(ctx context.Context) error {
			logger.Info("[Job] Refreshing latest index points...")
			_, err := svcs.Index.Refresh(ctx)
			return err
		}); err != nil {
			logger.Error("Invalid weekly index cron", "spec", cfg.Index.WeeklyCron, "error", err)
		}
	}

	worker.ScheduleEvery("expire_links", time.Hour, func(ctx context.Context) error {
		n, err := svcs.Share.ExpireLinks(ctx)
		if n > 0 {
			logger.Info("[Job] Deactivated expired report links", "count", n)
		}
		return err
	})

	worker.ScheduleEvery("prune_reports", 24*time.Hour, func(ctx context.Context) error {
		n, err := svcs.Report.Prune(ctx, cfg.ReportRetention)
		if n > 0 {
			logger.Info("[Job] Pruned cached reports", "count", n)
		}
		return err
	})

	logger.Info("Scheduled recurring jobs", "timezone", cfg.Index.Timezone)
}
