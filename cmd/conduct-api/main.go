package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/minhng-dev/conduct-portal-api/api/swagger"
	"github.com/minhng-dev/conduct-portal-api/internal/handler"
	"github.com/minhng-dev/conduct-portal-api/internal/middleware"
	"github.com/minhng-dev/conduct-portal-api/internal/models"
	"github.com/minhng-dev/conduct-portal-api/internal/repository"
	"github.com/minhng-dev/conduct-portal-api/internal/service"
	"github.com/minhng-dev/conduct-portal-api/pkg/cache"
	"github.com/minhng-dev/conduct-portal-api/pkg/config"
	"github.com/minhng-dev/conduct-portal-api/pkg/database"
	"github.com/minhng-dev/conduct-portal-api/pkg/jobs"
	"github.com/minhng-dev/conduct-portal-api/pkg/logger"
	corsmiddleware "github.com/minhng-dev/conduct-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/minhng-dev/conduct-portal-api/pkg/middleware/requestid"
	"github.com/minhng-dev/conduct-portal-api/pkg/storage"
)

// @title Conduct Portal API
// @version 1.0.0
// @description Class-scoped conduct activity tracking and scoring
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Redis is optional: a dead cache degrades to recomputation, not downtime.
	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, score caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Scores.CacheTTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "conduct-portal-api",
	})

	scopeSvc := service.NewScopeService(classRepo, studentRepo, logr)
	accessSvc := service.NewAccessService(scopeSvc, studentRepo, logr)
	semesterSvc := service.NewSemesterService(activityRepo, logr)
	creditSvc := service.NewCreditService(studentRepo, scopeSvc, registrationRepo, attendanceRepo, activityRepo, logr)
	scoreSvc := service.NewScoreService(creditSvc, cacheSvc, metricsSvc, logr)
	activitySvc := service.NewActivityService(activityRepo, accessSvc, userRepo, validate, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, activityRepo, studentRepo, accessSvc, scoreSvc, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, registrationRepo, activityRepo, studentRepo, accessSvc, scoreSvc, validate, logr)
	classSvc := service.NewClassService(classRepo, studentRepo, userRepo, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, registrationRepo, studentRepo, studentRepo, scopeSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	scoreHandler := handler.NewScoreHandler(scoreSvc, creditSvc, accessSvc)
	semesterHandler := handler.NewSemesterHandler(semesterSvc)
	classHandler := handler.NewClassHandler(classSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))
	{
		protected.GET("/semesters", semesterHandler.ListOptions)

		activities := protected.Group("/activities")
		activities.GET("", activityHandler.List)
		activities.GET("/:id", activityHandler.Get)
		activities.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), activityHandler.Create)
		activities.PATCH("/:id/status", middleware.RequireRoles(models.RoleAdmin), activityHandler.UpdateStatus)

		registrations := protected.Group("/registrations")
		registrations.POST("", middleware.RequireRoles(models.RoleStudent, models.RoleClassMonitor), registrationHandler.Register)
		registrations.PATCH("/:id/decision", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), registrationHandler.Decide)

		protected.POST("/attendance/confirm",
			middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleClassMonitor),
			attendanceHandler.Confirm)

		students := protected.Group("/students")
		students.GET("/:id/score", scoreHandler.GetScore)
		students.GET("/:id/credits", scoreHandler.GetCredits)

		classes := protected.Group("/classes")
		classes.GET("/:id", classHandler.Get)
		classes.GET("/:id/students", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), classHandler.ListStudents)
		classes.PUT("/:id/monitor", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), classHandler.AssignMonitor)

		notifications := protected.Group("/notifications")
		notifications.POST("/broadcast", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), notificationHandler.Broadcast)
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.CountUnread)
		notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		notifications.PATCH("/read-all", notificationHandler.MarkAllRead)
	}

	if cfg.Reports.Enabled {
		exportStore, err := storage.NewExportStore(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewDownloadSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(studentRepo, userRepo, scoreSvc, exportStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)

		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue(worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc := service.NewReportService(reportRepo, scopeSvc, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)

		reportHandler := handler.NewReportHandler(reportSvc)
		reports := api.Group("/reports", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
		reports.POST("/generate", reportHandler.Generate)
		reports.GET("/:id", reportHandler.Status)
		api.GET("/export/:token", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("forced shutdown", "error", err)
	}
}
