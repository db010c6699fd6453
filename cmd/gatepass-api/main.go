package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Riya-Avasthi/GatePass-For-Faculty/api/swagger"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/handler"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/middleware"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/repository"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/service"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/cache"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/config"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/database"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/logger"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/mailer"
	corsmiddleware "github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/middleware/cors"
	reqidmiddleware "github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/middleware/requestid"
)

// @title Gate Pass For Faculty API
// @version 1.0.0
// @description Approval workflow for faculty gate passes: submission, admin decisions and the gate allow log
// @BasePath /api
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The dashboard cache is an optimization; the API works without it.
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	smtpMailer, err := mailer.NewSMTP(cfg.SMTP)
	if err != nil {
		logr.Sugar().Fatalw("failed to configure smtp mailer", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "gatepass-api",
		EmailDomain: cfg.Registration.EmailDomain,
	})
	notifier := service.NewDecisionNotifier(smtpMailer, logr, cfg.SMTP.SendTimeout)
	requestSvc := service.NewRequestService(requestRepo, userRepo, notifier, cacheRepo, validate, logr, cfg.Dashboard.CacheTTL)

	authHandler := handler.NewAuthHandler(authSvc)
	facultyHandler := handler.NewFacultyHandler(requestSvc)
	adminHandler := handler.NewAdminHandler(requestSvc, metricsSvc)
	viewerHandler := handler.NewViewerHandler(requestSvc)
	dashboardHandler := handler.NewDashboardHandler(requestSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	registerRoutes(r, routeDeps{
		apiPrefix: cfg.APIPrefix,
		docs:      cfg.Env != config.EnvProduction,
		auth:      authSvc,
		authH:     authHandler,
		facultyH:  facultyHandler,
		adminH:    adminHandler,
		viewerH:   viewerHandler,
		dashH:     dashboardHandler,
		metricsH:  metricsHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

type routeDeps struct {
	apiPrefix string
	docs      bool
	auth      *service.AuthService
	authH     *handler.AuthHandler
	facultyH  *handler.FacultyHandler
	adminH    *handler.AdminHandler
	viewerH   *handler.ViewerHandler
	dashH     *handler.DashboardHandler
	metricsH  *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, deps routeDeps) {
	r.GET("/health", deps.metricsH.Health)
	r.GET("/ready", deps.metricsH.Ready)
	r.GET("/metrics", deps.metricsH.Prometheus)

	if deps.docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.apiPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.authH.Register)
		auth.POST("/login", deps.authH.Login)
		auth.GET("/me", middleware.JWT(deps.auth), deps.authH.Me)
		auth.POST("/logout", middleware.JWT(deps.auth), deps.authH.Logout)
	}

	faculty := api.Group("/faculty", middleware.JWT(deps.auth), middleware.RequireRoles(models.RoleFaculty, models.RoleAdmin))
	{
		faculty.POST("/leave-request", deps.facultyH.SubmitRequest)
		faculty.GET("/my-requests", deps.facultyH.MyRequests)
	}

	admin := api.Group("/admin", middleware.JWT(deps.auth), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/pending-requests", deps.adminH.PendingRequests)
		admin.GET("/all-requests", deps.adminH.AllRequests)
		admin.POST("/update-request", deps.adminH.UpdateRequest)
		admin.POST("/reopen-request", deps.adminH.ReopenRequest)
		admin.GET("/export", deps.adminH.Export)
	}

	viewer := api.Group("/viewer", middleware.JWT(deps.auth), middleware.RequireRoles(models.RoleViewer, models.RoleAdmin))
	{
		viewer.GET("/all-requests", deps.viewerH.AllRequests)
		viewer.GET("/all-allowed", deps.viewerH.AllAllowed)
		viewer.PUT("/mark-allowed/:id", deps.viewerH.MarkAllowed)
	}

	api.GET("/dashboard/summary", middleware.JWT(deps.auth), deps.dashH.Summary)
}
