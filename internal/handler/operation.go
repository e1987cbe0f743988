package handler

import (
	"errors"
	"net/http"
	"time"

	"llmdesk/internal/service"
	"llmdesk/internal/utils"
	"llmdesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 30 * time.Second

// OperationHandler 暴露一个轮询器：启动、查询快照、SSE 订阅进度
type OperationHandler struct {
	poller *service.OperationPoller
	param  string
}

func NewOperationHandler(poller *service.OperationPoller, param string) *OperationHandler {
	return &OperationHandler{
		poller: poller,
		param:  param,
	}
}

func (h *OperationHandler) Start(c *gin.Context) {
	key := c.Param(h.param)

	err := h.poller.Start(c.Request.Context(), key)
	snapshot, _ := h.poller.Snapshot(key)

	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, snapshot)
	case errors.Is(err, service.ErrOperationInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "operation": snapshot})
	case errors.Is(err, service.ErrPollerClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "operation": snapshot})
	}
}

func (h *OperationHandler) Progress(c *gin.Context) {
	snapshot, _ := h.poller.Snapshot(c.Param(h.param))
	c.JSON(http.StatusOK, snapshot)
}

func (h *OperationHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operations": h.poller.Operations()})
}

// Events 以 SSE 推送状态变化，直到状态被清理、客户端断开或轮询器关闭
func (h *OperationHandler) Events(c *gin.Context) {
	key := c.Param(h.param)

	updates, stop := h.poller.Watch(key)
	defer stop()

	sseWriter := utils.NewSSEWriter(c.Writer)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	if snapshot, tracked := h.poller.Snapshot(key); !tracked {
		sseWriter.WriteJSON("progress", snapshot)
		sseWriter.Close()
		return
	}

	for {
		select {
		case op, ok := <-updates:
			if !ok {
				sseWriter.Close()
				return
			}
			if err := sseWriter.WriteJSON("progress", op); err != nil {
				logger.Warnf("Failed to write SSE for %s: %v", key, err)
				return
			}
		case <-heartbeat.C:
			if err := sseWriter.Comment("heartbeat"); err != nil {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}
