package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/hplatform/homework-api/api/swagger"
	"github.com/hplatform/homework-api/internal/handler"
	"github.com/hplatform/homework-api/internal/middleware"
	"github.com/hplatform/homework-api/internal/models"
	"github.com/hplatform/homework-api/internal/repository"
	"github.com/hplatform/homework-api/internal/service"
	"github.com/hplatform/homework-api/pkg/cache"
	"github.com/hplatform/homework-api/pkg/config"
	"github.com/hplatform/homework-api/pkg/database"
	"github.com/hplatform/homework-api/pkg/logger"
	corsmiddleware "github.com/hplatform/homework-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hplatform/homework-api/pkg/middleware/requestid"
)

// @title Homework Platform API
// @version 1.0.0
// @description Homework submission and grading backend
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
	defer db.Close() //nolint:errcheck

	var cacheRepo *repository.CacheRepository
	if cfg.Assignments.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, assignment caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	var assignmentCache service.ListCache
	if cacheRepo != nil {
		assignmentCache = cacheRepo
	}
	assignmentSvc := service.NewAssignmentService(assignmentRepo, teacherRepo, assignmentCache, cfg.Assignments.CacheTTL, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, studentRepo, metricsSvc, cfg.Exports.MaxRows, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		}

		secured := api.Group("")
		secured.Use(middleware.JWT(authSvc))
		{
			secured.GET("/assignments", middleware.RequireRoles(models.RoleTeacher), assignmentHandler.List)
			secured.GET("/assignments/:id", middleware.RequireRoles(models.RoleTeacher), assignmentHandler.Get)
			secured.POST("/assignments", middleware.RequireRoles(models.RoleTeacher), assignmentHandler.Create)

			secured.GET("/submissions", submissionHandler.List)
			secured.POST("/submissions", middleware.RequireRoles(models.RoleStudent), submissionHandler.Create)
			secured.GET("/submissions/export", middleware.RequireRoles(models.RoleTeacher), submissionHandler.Export)
			secured.PATCH("/submissions/:id", middleware.RequireRoles(models.RoleTeacher), submissionHandler.Grade)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
