package handlers

import (
	"github.com/code-100-precent/maitri/pkg/chat"
	"github.com/code-100-precent/maitri/pkg/config"
	"github.com/code-100-precent/maitri/pkg/metrics"
	"github.com/code-100-precent/maitri/pkg/middleware"
	"github.com/code-100-precent/maitri/pkg/response"
	"github.com/code-100-precent/maitri/pkg/voice"
	"github.com/gin-gonic/gin"
)

const (
	apiName        = "MAITRI API"
	apiDescription = "Mental and Adaptive Intelligence for Therapeutic Response and Integration"
	apiVersion     = "1.0.0"
)

type Handlers struct {
	cfg         *config.Config
	chat        *chat.Service
	voice       *voice.VoiceWebSocketHandler
	chatLimiter gin.HandlerFunc
}

func NewHandlers(cfg *config.Config, chatService *chat.Service, voiceHandler *voice.VoiceWebSocketHandler) (*Handlers, error) {
	limiter, err := middleware.RateLimiterMiddleware(cfg.ChatRateLimit)
	if err != nil {
		return nil, err
	}
	return &Handlers{
		cfg:         cfg,
		chat:        chatService,
		voice:       voiceHandler,
		chatLimiter: limiter,
	}, nil
}

// Register 注册全部路由
func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/", h.handleInfo)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET(h.voicePath(), h.HandleWebSocketVoice)

	h.registerChatRoutes(r.Group("/api/chat"))

	r.NoRoute(response.NotFound)
}

func (h *Handlers) handleInfo(c *gin.Context) {
	response.Success(c, gin.H{
		"name":        apiName,
		"description": apiDescription,
		"version":     apiVersion,
		"endpoints": gin.H{
			"chat":         "POST /api/chat",
			"newSession":   "POST /api/chat/new-session",
			"health":       "GET /api/chat/health",
			"sessionStats": "GET /api/chat/sessions/:id",
			"voice":        "GET " + h.voicePath(),
		},
	})
}

func (h *Handlers) voicePath() string {
	if h.cfg.VoicePath == "" {
		return voice.DefaultVoicePath
	}
	return h.cfg.VoicePath
}
