package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/uni-crs-api/api/swagger"
	"github.com/noah-isme/uni-crs-api/internal/handler"
	"github.com/noah-isme/uni-crs-api/internal/middleware"
	"github.com/noah-isme/uni-crs-api/internal/models"
	"github.com/noah-isme/uni-crs-api/internal/repository"
	"github.com/noah-isme/uni-crs-api/internal/service"
	"github.com/noah-isme/uni-crs-api/pkg/cache"
	"github.com/noah-isme/uni-crs-api/pkg/config"
	"github.com/noah-isme/uni-crs-api/pkg/database"
	"github.com/noah-isme/uni-crs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-crs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-crs-api/pkg/middleware/requestid"
)

// @title University Course Registration API
// @version 1.0.0
// @description Enrollment and waitlist engine for semester course registration
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Sections.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Sections.CacheTTL, logr, true)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Sections.CacheTTL, logr, false)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	windowRepo := repository.NewWindowRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)

	authSvc := service.NewAuthService(userRepo, cfg.JWT, logr)
	studentSvc := service.NewStudentService(studentRepo, cfg.Registration.PassingGrade, logr)
	windowSvc := service.NewWindowService(windowRepo, time.Now)
	prereqSvc := service.NewPrerequisiteService(courseRepo, false, logr)
	sectionSvc := service.NewSectionService(sectionRepo, cacheSvc, cfg.Sections.CacheTTL, logr)
	notifySvc := service.NewNotificationService(cfg.Waitlist, logr)
	notifySvc.Start(ctx)
	defer notifySvc.Stop()

	registrationSvc := service.NewRegistrationService(
		registrationRepo,
		studentSvc,
		sectionRepo,
		courseRepo,
		windowSvc,
		prereqSvc,
		service.NewScheduleConflictChecker(),
		service.NewCreditLoadPolicy(cfg.Registration.DefaultMaxCredits, logr),
		notifySvc,
		sectionSvc,
		metricsSvc,
		nil,
		logr,
	)

	authHandler := handler.NewAuthHandler(authSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	adminHandler := handler.NewAdminRegistrationHandler(registrationSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc)
	windowHandler := handler.NewWindowHandler(windowSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	// Catalog reads are browsable without a session; claims are attached when
	// a token is present so responses could be tailored later.
	catalog := api.Group("")
	catalog.Use(middleware.OptionalJWT(authSvc))
	catalog.GET("/sections", sectionHandler.List)
	catalog.GET("/sections/:id", sectionHandler.Get)
	catalog.GET("/windows/active", windowHandler.Active)
	catalog.GET("/windows/:id", windowHandler.Get)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/sections/:id/roster", sectionHandler.Roster)
	authed.GET("/sections/:id/waitlist", sectionHandler.Waitlist)

	authed.POST("/registrations", registrationHandler.Create)
	authed.GET("/registrations", registrationHandler.List)
	authed.GET("/registrations/:id", registrationHandler.Get)
	authed.DELETE("/registrations/:id", registrationHandler.Delete)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar))
	admin.POST("/registrations",
		middleware.Audit(userRepo, models.AuditActionForceAdd, "registrations"),
		adminHandler.ForceAdd)
	admin.DELETE("/registrations/:id",
		middleware.Audit(userRepo, models.AuditActionForceRemove, "registrations"),
		adminHandler.ForceRemove)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
