package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/code-100-precent/maitri/pkg/chat"
	"github.com/code-100-precent/maitri/pkg/config"
	"github.com/code-100-precent/maitri/pkg/errhandler"
	"github.com/code-100-precent/maitri/pkg/metrics"
	"github.com/code-100-precent/maitri/pkg/response"
	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type newSessionRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *Handlers) registerChatRoutes(r *gin.RouterGroup) {
	r.POST("", h.chatLimiter, h.handleChat)
	r.POST("/new-session", h.handleNewSession)
	r.GET("/health", h.handleHealth)
	r.GET("/sessions/:id", h.handleSessionStats)
}

// handleChat POST /api/chat
func (h *Handlers) handleChat(c *gin.Context) {
	defer func() {
		metrics.ChatRequests.WithLabelValues(strconv.Itoa(c.Writer.Status())).Inc()
	}()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AbortWithError(c, errhandler.NewValidationError("Chat", "Message is required and must be a non-empty string"), false)
		return
	}

	result, err := h.chat.Chat(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		c.Error(err)
		response.AbortWithError(c, err, !h.cfg.IsProduction())
		return
	}
	response.Success(c, result)
}

// handleNewSession POST /api/chat/new-session，请求体可省略
func (h *Handlers) handleNewSession(c *gin.Context) {
	var req newSessionRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	response.Success(c, gin.H{
		"sessionId": h.chat.NewSession(req.SessionID),
		"message":   chat.NewSessionMessage,
	})
}

// handleHealth GET /api/chat/health
func (h *Handlers) handleHealth(c *gin.Context) {
	name := h.cfg.ServerName
	if name == "" {
		name = config.DefaultServerName
	}
	response.Success(c, gin.H{
		"status":    "healthy",
		"service":   name,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// handleSessionStats GET /api/chat/sessions/:id
func (h *Handlers) handleSessionStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.chat.Stats(c.Param("id")))
}
