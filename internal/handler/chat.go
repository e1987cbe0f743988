package handler

import (
	"errors"
	"net/http"

	"llmdesk/internal/model"
	"llmdesk/internal/service"
	"llmdesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ChatHandler struct {
	tracker      *service.GenerationTracker
	repo         *service.SessionRepository
	defaultModel string
}

func NewChatHandler(tracker *service.GenerationTracker, repo *service.SessionRepository, defaultModel string) *ChatHandler {
	return &ChatHandler{
		tracker:      tracker,
		repo:         repo,
		defaultModel: defaultModel,
	}
}

// Generate 非流式生成：用户消息与助手回复都写入当前会话
func (h *ChatHandler) Generate(c *gin.Context) {
	var req model.ChatGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	modelName := req.Model
	if modelName == "" {
		modelName = h.defaultModel
	}

	logger.WithFields(logrus.Fields{"model": modelName, "use_rag": req.UseRAG}).Info("Generate request")

	resp, err := h.tracker.Generate(c.Request.Context(), modelName, req.Prompt, service.GenerateParams{
		System:  req.System,
		UseRAG:  req.UseRAG,
		Options: req.Options,
	})
	if err != nil {
		var genErr *service.GenerationError
		if errors.As(err, &genErr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error": genErr.Err.Error(),
				"model": genErr.Model,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	replyModel := resp.Model
	if replyModel == "" {
		replyModel = modelName
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": h.repo.CurrentID(),
		"response":   resp.Response,
		"model":      replyModel,
		"sources":    resp.Sources,
		"stats":      resp.Stats(),
	})
}

// Reset 清除续写句柄与当前会话消息
func (h *ChatHandler) Reset(c *gin.Context) {
	if err := h.tracker.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation reset"})
}
