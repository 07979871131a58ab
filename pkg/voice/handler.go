package voice

import (
	"context"
	"time"

	"github.com/code-100-precent/maitri/pkg/recognizer"
	"github.com/code-100-precent/maitri/pkg/voice/message"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TranscriberFactory 为每个会话创建独立的识别连接
type TranscriberFactory func() (recognizer.TranscribeService, error)

// HandlerConfig 语音处理器配置
type HandlerConfig struct {
	NewTranscriber TranscriberFactory
	Generator      message.Generator
	Speaker        message.Speaker
	Cooldown       time.Duration
	MaxTurns       int
	// Context 所有会话的父上下文，取消时会话随之放弃进行中的工作
	Context context.Context
	Logger  *zap.Logger
}

// VoiceWebSocketHandler WebSocket语音处理器
type VoiceWebSocketHandler struct {
	cfg      HandlerConfig
	registry *Registry
	logger   *zap.Logger
}

// NewVoiceWebSocketHandler 创建新的WebSocket语音处理器
func NewVoiceWebSocketHandler(cfg HandlerConfig) *VoiceWebSocketHandler {
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	return &VoiceWebSocketHandler{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   cfg.Logger,
	}
}

// HandleWebSocket 处理一个已升级的连接，阻塞到会话关闭
func (h *VoiceWebSocketHandler) HandleWebSocket(conn Conn) {
	transcriber, err := h.cfg.NewTranscriber()
	if err != nil {
		h.logger.Error("创建识别服务失败", zap.Error(err))
		conn.Close()
		return
	}

	session, err := NewSession(&SessionConfig{
		ID:          uuid.NewString(),
		Conn:        conn,
		Transcriber: transcriber,
		Generator:   h.cfg.Generator,
		Speaker:     h.cfg.Speaker,
		Cooldown:    h.cfg.Cooldown,
		MaxTurns:    h.cfg.MaxTurns,
		Logger:      h.logger,
		Context:     h.cfg.Context,
		OnClose: func(s *Session) {
			h.registry.Remove(s.ID())
		},
	})
	if err != nil {
		h.logger.Error("创建语音会话失败", zap.Error(err))
		transcriber.StopConn()
		conn.Close()
		return
	}

	h.registry.Add(session)
	h.logger.Info("voice session started", zap.String("session", session.ID()))
	session.Run()
}

// ActiveSessions 当前活跃会话数
func (h *VoiceWebSocketHandler) ActiveSessions() int {
	return h.registry.Len()
}

// Session 按标识查找会话
func (h *VoiceWebSocketHandler) Session(id string) (*Session, bool) {
	return h.registry.Get(id)
}

// CloseAll 关闭所有会话
func (h *VoiceWebSocketHandler) CloseAll() {
	h.registry.CloseAll()
}
