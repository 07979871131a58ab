package voice

// 默认配置值
const (
	DefaultVoicePath   = "/ws/voice"
	DefaultEventBuffer = 64
)
