package handlers

import (
	"net/http"

	"github.com/code-100-precent/maitri/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var voiceUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 1024, // 1MB读缓冲区，支持大音频数据
	WriteBufferSize: 1024 * 1024, // 1MB写缓冲区，支持大音频数据
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// HandleWebSocketVoice 升级为语音通道，阻塞到会话结束
func (h *Handlers) HandleWebSocketVoice(c *gin.Context) {
	conn, err := voiceUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket升级失败", zap.Error(err))
		return
	}
	h.voice.HandleWebSocket(conn)
}
