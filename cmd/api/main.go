package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/blog-platform-api/api/swagger"
	"github.com/noah-isme/blog-platform-api/internal/handler"
	"github.com/noah-isme/blog-platform-api/internal/middleware"
	"github.com/noah-isme/blog-platform-api/internal/models"
	"github.com/noah-isme/blog-platform-api/internal/repository"
	"github.com/noah-isme/blog-platform-api/internal/service"
	"github.com/noah-isme/blog-platform-api/internal/token"
	"github.com/noah-isme/blog-platform-api/pkg/cache"
	"github.com/noah-isme/blog-platform-api/pkg/config"
	"github.com/noah-isme/blog-platform-api/pkg/database"
	"github.com/noah-isme/blog-platform-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/blog-platform-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/blog-platform-api/pkg/middleware/requestid"
)

// @title Blog Platform API
// @version 1.0.0
// @description Blog platform with JWT session management, users and posts
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, post listings will not be cached", zap.Error(err))
		redisClient = nil
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	postRepo := repository.NewPostRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
	}

	codec := token.NewCodec(cfg.JWT.Secret, cfg.JWT.Issuer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var auditSvc *service.AuditService
	if cfg.Audit.Enabled {
		auditSvc = service.NewAuditService(auditRepo, logr, cfg.Audit)
		auditSvc.Start(ctx)
		defer auditSvc.Stop()
	}

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, tokenRepo, codec, nil, logr, auditSvc, service.AuthConfig{
		AccessTokenExpiry:  cfg.JWT.AccessExpiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	userSvc := service.NewUserService(userRepo, nil, logr, auditSvc, metricsSvc)

	postSvc := newPostService(postRepo, cacheRepo, logr, auditSvc, metricsSvc, cfg.Posts.CacheTTL)

	authHandler := handler.NewAuthHandler(authSvc, int(cfg.JWT.CookieMaxAge.Seconds()))
	userHandler := handler.NewUserHandler(userSvc)
	postHandler := handler.NewPostHandler(postSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.Authenticate(authSvc))

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/refresh_token", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)

	users := api.Group("/users")
	users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), userHandler.Get)
	users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), userHandler.Update)
	users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)

	posts := api.Group("/posts")
	posts.GET("", postHandler.List)
	posts.GET("/:id", postHandler.Get)
	posts.POST("", middleware.RequireRoles(models.RoleUser, models.RoleAdmin), postHandler.Create)
	posts.PUT("/:id", middleware.RequireAuth(), postHandler.Update)
	posts.DELETE("/:id", middleware.RequireAuth(), postHandler.Delete)

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

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// newPostService avoids handing a typed nil cache to the service.
func newPostService(repo *repository.PostRepository, cacheRepo *repository.CacheRepository, logr *zap.Logger, audit *service.AuditService, metrics *service.MetricsService, ttl time.Duration) *service.PostService {
	if cacheRepo == nil {
		return service.NewPostService(repo, nil, nil, logr, audit, metrics, ttl)
	}
	return service.NewPostService(repo, cacheRepo, nil, logr, audit, metrics, ttl)
}
