package handler

import (
	"net/http"

	"llmdesk/internal/model"
	"llmdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	repo     *service.SessionRepository
	pipeline *service.MessagePipeline
	tracker  *service.GenerationTracker
}

func NewSessionHandler(repo *service.SessionRepository, pipeline *service.MessagePipeline, tracker *service.GenerationTracker) *SessionHandler {
	return &SessionHandler{
		repo:     repo,
		pipeline: pipeline,
		tracker:  tracker,
	}
}

func (h *SessionHandler) List(c *gin.Context) {
	currentID := h.repo.CurrentID()
	sessions := h.repo.Sessions()

	out := make([]model.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary(currentID))
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions":           out,
		"current_session_id": currentID,
	})
}

func (h *SessionHandler) Create(c *gin.Context) {
	session, err := h.repo.Create()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session.Summary(session.ID))
}

func (h *SessionHandler) Current(c *gin.Context) {
	session, ok := h.repo.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no current session"})
		return
	}
	c.JSON(http.StatusOK, session.Summary(session.ID))
}

func (h *SessionHandler) Rename(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.exists(c, id) {
		return
	}
	if err := h.repo.Rename(id, req.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	session, _ := h.repo.Get(id)
	c.JSON(http.StatusOK, session.Summary(h.repo.CurrentID()))
}

func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !h.exists(c, id) {
		return
	}

	if err := h.repo.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.tracker.Forget(id)

	c.JSON(http.StatusOK, gin.H{
		"message":            "Session deleted successfully",
		"current_session_id": h.repo.CurrentID(),
	})
}

func (h *SessionHandler) Switch(c *gin.Context) {
	id := c.Param("id")
	if !h.exists(c, id) {
		return
	}

	if err := h.repo.SwitchCurrent(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_session_id": id})
}

func (h *SessionHandler) Clear(c *gin.Context) {
	id := c.Param("id")
	if !h.exists(c, id) {
		return
	}

	if err := h.repo.ClearMessages(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// 清空后的会话从头开始，不再沿用旧句柄
	h.tracker.Forget(id)
	c.JSON(http.StatusOK, gin.H{"message": "Messages cleared"})
}

func (h *SessionHandler) Messages(c *gin.Context) {
	id := c.Param("id")

	messages, ok := h.pipeline.Messages(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": id,
		"messages":   messages,
	})
}

// exists 会话不存在时直接写 404
func (h *SessionHandler) exists(c *gin.Context, id string) bool {
	if _, ok := h.repo.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return false
	}
	return true
}
