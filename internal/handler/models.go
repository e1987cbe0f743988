package handler

import (
	"context"
	"net/http"
	"time"

	"llmdesk/internal/model"
	"llmdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type ModelHandler struct {
	catalog *service.ModelCatalog
}

func NewModelHandler(catalog *service.ModelCatalog) *ModelHandler {
	return &ModelHandler{catalog: catalog}
}

// List ?refresh=true 时绕过缓存
func (h *ModelHandler) List(c *gin.Context) {
	var (
		models []model.ModelInfo
		err    error
	)
	if c.Query("refresh") == "true" {
		models, err = h.catalog.Refresh(c.Request.Context())
	} else {
		models, err = h.catalog.Models(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if models == nil {
		models = []model.ModelInfo{}
	}

	c.JSON(http.StatusOK, gin.H{
		"models":       models,
		"refreshed_at": h.catalog.RefreshedAt(),
	})
}

type HealthChecker interface {
	CheckHealth(ctx context.Context) (*model.HealthStatus, error)
}

// Health 本服务始终返回 200；后端不可达时 backend.connected 为 false
func Health(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		}
		if checker == nil {
			c.JSON(http.StatusOK, body)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		backend, err := checker.CheckHealth(ctx)
		if err != nil {
			body["backend"] = gin.H{"connected": false, "error": err.Error()}
		} else {
			body["backend"] = backend
		}
		c.JSON(http.StatusOK, body)
	}
}
