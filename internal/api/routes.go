package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumecraft/internal/api/middleware"
	"resumecraft/internal/auth"
	"resumecraft/internal/catalog"
	"resumecraft/internal/config"
	"resumecraft/internal/docstore"
	"resumecraft/internal/editor"
	"resumecraft/internal/gateway"
	"resumecraft/internal/notify"
	"resumecraft/internal/session"
	"resumecraft/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	store *docstore.Store,
	catalogService *catalog.Service,
	gw *gateway.Gateway,
	renderer editor.Renderer,
	providers *session.ProviderRegistry,
	resolver *session.Resolver,
	authService *auth.AuthService,
	asynqClient *asynq.Client,
	redisClient redis.UniversalClient,
	storageClient *storage.Client,
	notifier notify.Notifier,
	logger *slog.Logger,
) {
	previews := NewAsynqPreviewEnqueuer(asynqClient)

	authHandler := NewAuthHandler(providers, authService, resolver, redisClient, logger, cfg.Auth.ExchangeRateLimitHour, cfg.Auth.CookieDomain)
	userHandler := NewUserHandler(catalogService, logger)
	templateHandler := NewTemplateHandler(catalogService, store, storageClient, logger, cfg.API.ClamdAddr)
	resumeHandler := NewResumeHandler(catalogService, gw, renderer, previews, notifier, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.AllowedOrigins)

	authMiddleware := middleware.AuthMiddleware(authService)
	optionalAuth := middleware.OptionalAuthMiddleware(authService)
	adminOnly := middleware.AdminOnlyMiddleware(cfg.Auth.AdminUIDs)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/exchange", authHandler.Exchange)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
		}

		v1.GET("/me", authMiddleware, userHandler.GetMe)

		templateGroup := v1.Group("/templates")
		{
			templateGroup.GET("", optionalAuth, templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
			templateGroup.POST("/:id/collections", authMiddleware, userHandler.ToggleCollection)
			templateGroup.POST("/:id/favourites", authMiddleware, userHandler.ToggleFavourite)
		}

		resumeGroup := v1.Group("/resumes")
		{
			resumeGroup.GET("", authMiddleware, resumeHandler.ListResumes)
			resumeGroup.GET("/:templateName", optionalAuth, resumeHandler.GetResume)
			resumeGroup.PUT("/:templateName", authMiddleware, resumeHandler.SaveResume)
			resumeGroup.GET("/:templateName/export", optionalAuth, resumeHandler.ExportResume)
		}

		adminGroup := v1.Group("/admin")
		adminGroup.Use(authMiddleware, adminOnly)
		{
			adminGroup.POST("/templates", templateHandler.CreateTemplate)
			adminGroup.DELETE("/templates/:id", templateHandler.DeleteTemplate)
		}
	}
}
