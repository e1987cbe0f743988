package handler

import (
	"time"

	"llmdesk/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Chat      *ChatHandler
	Sessions  *SessionHandler
	Models    *ModelHandler
	Downloads *OperationHandler
	Training  *OperationHandler
	Health    HealthChecker
}

func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS配置
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// 健康检查
	router.GET("/health", Health(h.Health))

	api := router.Group("/api")
	{
		sessions := api.Group("/sessions")
		{
			sessions.GET("", h.Sessions.List)
			sessions.POST("", h.Sessions.Create)
			sessions.GET("/current", h.Sessions.Current)
			sessions.PUT("/:id", h.Sessions.Rename)
			sessions.DELETE("/:id", h.Sessions.Delete)
			sessions.POST("/:id/switch", h.Sessions.Switch)
			sessions.POST("/:id/clear", h.Sessions.Clear)
			sessions.GET("/:id/messages", h.Sessions.Messages)
		}

		api.POST("/generate", h.Chat.Generate)
		api.POST("/generate/reset", h.Chat.Reset)

		models := api.Group("/models")
		{
			models.GET("", h.Models.List)
			models.GET("/pulls", h.Downloads.List)
			models.POST("/:name/pull", h.Downloads.Start)
			models.GET("/:name/pull", h.Downloads.Progress)
			models.GET("/:name/pull/events", h.Downloads.Events)
		}

		if h.Training != nil {
			training := api.Group("/training/jobs")
			{
				training.GET("", h.Training.List)
				training.POST("/:id/start", h.Training.Start)
				training.GET("/:id/progress", h.Training.Progress)
				training.GET("/:id/events", h.Training.Events)
			}
		}
	}

	return router
}
