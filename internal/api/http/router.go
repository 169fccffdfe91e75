package http

import (
	"github.com/EternisAI/silo-activation/internal/api/http/handler"
	"github.com/EternisAI/silo-activation/internal/api/http/middleware"
	"github.com/EternisAI/silo-activation/internal/auth"
	"github.com/EternisAI/silo-activation/internal/keys"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Auth        *auth.Service
	Keys        *keys.Service
	JWT         auth.JWTConfig
	AdminAPIKey string
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)

	authHandler := handler.NewAuthHandler(srvs.Auth)
	keysHandler := handler.NewKeysHandler(srvs.Keys)

	api := engine.Group("/api/v1")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("", middleware.JWTAuth(srvs.JWT.Secret))
	protected.POST("/activation-keys", keysHandler.Generate)
	protected.POST("/activation-keys/deploy", keysHandler.Deploy)
	protected.POST("/activation-keys/stop", keysHandler.Stop)
	protected.POST("/activation-keys/validate", keysHandler.Validate)

	admin := api.Group("/admin", middleware.APIKeyAuth(srvs.AdminAPIKey))
	admin.GET("/activation-keys", keysHandler.List)
	admin.DELETE("/activation-keys/:id", keysHandler.Delete)
}
