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

	_ "github.com/stajtakip/internship-api/api/swagger"
	"github.com/stajtakip/internship-api/internal/handler"
	"github.com/stajtakip/internship-api/internal/middleware"
	"github.com/stajtakip/internship-api/internal/models"
	"github.com/stajtakip/internship-api/internal/repository"
	"github.com/stajtakip/internship-api/internal/service"
	"github.com/stajtakip/internship-api/pkg/cache"
	"github.com/stajtakip/internship-api/pkg/config"
	"github.com/stajtakip/internship-api/pkg/database"
	"github.com/stajtakip/internship-api/pkg/logger"
	"github.com/stajtakip/internship-api/pkg/mail"
	corsmiddleware "github.com/stajtakip/internship-api/pkg/middleware/cors"
	reqidmiddleware "github.com/stajtakip/internship-api/pkg/middleware/requestid"
	"github.com/stajtakip/internship-api/pkg/ratelimit"
	"github.com/stajtakip/internship-api/pkg/storage"
)

// @title Internship Office API
// @version 1.0.0
// @description Internship application and diary approval workflows
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var limiter *ratelimit.RedisLimiter
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, credential attempts are not throttled", "error", err)
	} else {
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.OTP.AttemptLimit, cfg.OTP.AttemptWindow, "otp")
	}

	files, err := storage.NewLocalStorage(cfg.Diaries.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare diary storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Diaries.SignedURLSecret, cfg.Diaries.SignedURLTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := service.NewMailNotifier(mail.NewSMTPSender(cfg.Mail), cfg.Notifications, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	advisorRepo := repository.NewAdvisorRepository(db)
	dualMajorRepo := repository.NewDualMajorRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	diaryRepo := repository.NewDiaryRepository(db)
	exemptionRepo := repository.NewExemptionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	validate := validator.New()
	metrics := service.NewMetricsService()
	gate := service.NewOTPGate(cfg.OTP, limiter, logr)
	resolver := service.NewCapResolver(studentRepo, dualMajorRepo, advisorRepo, logr)
	guard := service.NewAccessGuard(resolver)

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "internship-api",
	})
	applicationSvc := service.NewApplicationService(applicationRepo, studentRepo, auditRepo, guard, gate, notifier, logr,
		service.WithCareerCenterEmail(cfg.Internship.CareerCenterEmail),
		service.WithApplicationMetrics(metrics),
	)
	diarySvc := service.NewDiaryService(diaryRepo, files, signer, auditRepo, guard, gate, notifier, cfg.Internship.UploadGraceDays, logr,
		service.WithDiaryMetrics(metrics),
	)
	exemptionSvc := service.NewExemptionService(exemptionRepo, auditRepo, guard, notifier, logr)
	exportSvc := service.NewExportService(applicationSvc, diarySvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	applicationHandler := handler.NewApplicationHandler(applicationSvc)
	diaryHandler := handler.NewDiaryHandler(diarySvc, cfg.Diaries.MaxFileSizeBytes)
	companyHandler := handler.NewCompanyHandler(applicationSvc, diarySvc)
	exemptionHandler := handler.NewExemptionHandler(exemptionSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	// Company contacts act through the mailed one-time credential, not a session.
	company := api.Group("/company")
	company.POST("/applications/:id/decision", companyHandler.DecideApplication)
	company.POST("/diaries/:id/decision", companyHandler.DecideDiary)

	api.GET("/diaries/download/:token", diaryHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	applications := authed.Group("/applications")
	applications.POST("", middleware.RequireRoles(models.RoleStudent), applicationHandler.Submit)
	applications.GET("", applicationHandler.List)
	applications.GET("/:id", applicationHandler.Get)
	applications.POST("/:id/cancel", middleware.RequireRoles(models.RoleStudent), applicationHandler.Cancel)

	diaries := authed.Group("/diaries")
	diaries.GET("", diaryHandler.List)
	diaries.GET("/:id", diaryHandler.Get)
	diaries.POST("/:id/upload", middleware.RequireRoles(models.RoleStudent), diaryHandler.Upload)

	exemptions := authed.Group("/exemptions")
	exemptions.POST("", middleware.RequireRoles(models.RoleStudent), exemptionHandler.Submit)
	exemptions.GET("", exemptionHandler.List)

	advisor := authed.Group("/advisor")
	advisor.Use(middleware.RequireRoles(models.RoleAdvisor, models.RoleAdmin))
	advisor.POST("/applications/:id/approve", applicationHandler.AdvisorApprove)
	advisor.POST("/applications/:id/reject", applicationHandler.AdvisorReject)
	advisor.POST("/diaries/:id/decision", diaryHandler.AdvisorDecide)
	advisor.POST("/diaries/:id/download", diaryHandler.DownloadToken)
	advisor.POST("/exemptions/:id/decision", exemptionHandler.Decide)
	advisor.GET("/exports/applications", middleware.Audit(auditRepo, "EXPORT", "application"), exportHandler.Applications)
	advisor.GET("/exports/diaries", middleware.Audit(auditRepo, "EXPORT", "diary"), exportHandler.Diaries)

	careerCenter := authed.Group("/career-center")
	careerCenter.Use(middleware.RequireRoles(models.RoleCareerCenter, models.RoleAdmin))
	careerCenter.POST("/applications/:id/approve", applicationHandler.CareerCenterApprove)
	careerCenter.POST("/applications/:id/reject", applicationHandler.CareerCenterReject)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
