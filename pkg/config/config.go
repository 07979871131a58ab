package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/code-100-precent/maitri/pkg/logger"
	"github.com/code-100-precent/maitri/pkg/utils"
)

// Config 服务全局配置
type Config struct {
	ServerName string `env:"SERVER_NAME"`
	Addr       string `env:"ADDR"`
	Mode       string `env:"MODE"`
	CORSOrigin string `env:"CORS_ORIGIN"`
	Log        logger.LogConfig

	// 语音通道
	VoicePath      string        `env:"VOICE_PATH"`
	VoiceCooldown  time.Duration `env:"VOICE_COOLDOWN_MS"`
	MemoryMaxTurns int           `env:"MEMORY_MAX_TURNS"`

	// LLM配置
	LLMProvider       string        `env:"LLM_PROVIDER"` // gemini, openai, ollama
	LLMApiKey         string        `env:"LLM_API_KEY"`
	LLMBaseURL        string        `env:"LLM_BASE_URL"`
	LLMModel          string        `env:"LLM_MODEL"`
	LLMTemperature    float32       `env:"LLM_TEMPERATURE"`
	LLMMaxTokens      int           `env:"LLM_MAX_TOKENS"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT"`

	// ASR配置
	DeepgramApiKey   string `env:"DEEPGRAM_API_KEY"`
	ASRModel         string `env:"ASR_MODEL"`
	ASRLanguage      string `env:"ASR_LANGUAGE"`
	ASREndpointingMs int    `env:"ASR_ENDPOINTING_MS"`

	// TTS配置
	TTSProvider      string        `env:"TTS_PROVIDER"` // deepgram, openai, elevenlabs, aws
	TTSModel         string        `env:"TTS_MODEL"`
	TTSVoice         string        `env:"TTS_VOICE"`
	TTSFrameSize     int           `env:"TTS_FRAME_SIZE"`
	TTSCacheSize     int           `env:"TTS_CACHE_SIZE"`
	SynthesisTimeout time.Duration `env:"SYNTHESIS_TIMEOUT"`
	OpenAIApiKey     string        `env:"OPENAI_API_KEY"`
	ElevenLabsApiKey string        `env:"ELEVENLABS_API_KEY"`
	AWSRegion        string        `env:"AWS_REGION"`

	// 文本对话
	ChatSessionTTL       time.Duration `env:"CHAT_SESSION_TTL"`
	ChatRateLimit        string        `env:"CHAT_RATE_LIMIT"`
	ChatMaxMessageLength int           `env:"CHAT_MAX_MESSAGE_LENGTH"`
}

// DefaultServerName 健康检查中返回的服务名
const DefaultServerName = "MAITRI Chat API"

var GlobalConfig *Config

// Load 加载环境变量到 GlobalConfig，所有项都带默认值
func Load() error {
	env := os.Getenv("APP_ENV")
	if err := utils.LoadEnv(env); err != nil {
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}

	GlobalConfig = &Config{
		ServerName: getStringOrDefault("SERVER_NAME", DefaultServerName),
		Addr:       getStringOrDefault("ADDR", ":"+getStringOrDefault("PORT", "5000")),
		Mode:       getStringOrDefault("MODE", "development"),
		CORSOrigin: getStringOrDefault("CORS_ORIGIN", "http://localhost:5173"),
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		VoicePath:         getStringOrDefault("VOICE_PATH", "/ws/voice"),
		VoiceCooldown:     getDurationOrDefault("VOICE_COOLDOWN_MS", 2000*time.Millisecond),
		MemoryMaxTurns:    getIntOrDefault("MEMORY_MAX_TURNS", 20),
		LLMProvider:       strings.ToLower(getStringOrDefault("LLM_PROVIDER", "gemini")),
		LLMApiKey:         getStringOrDefault("LLM_API_KEY", utils.GetEnv("GOOGLE_API_KEY")),
		LLMBaseURL:        getStringOrDefault("LLM_BASE_URL", ""),
		LLMModel:          getStringOrDefault("LLM_MODEL", "gemini-2.5-flash-lite"),
		LLMTemperature:    getFloatOrDefault("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:      getIntOrDefault("LLM_MAX_TOKENS", 0),
		GenerationTimeout: getDurationOrDefault("GENERATION_TIMEOUT", 30*time.Second),
		DeepgramApiKey:    getStringOrDefault("DEEPGRAM_API_KEY", ""),
		ASRModel:          getStringOrDefault("ASR_MODEL", "nova-2"),
		ASRLanguage:       getStringOrDefault("ASR_LANGUAGE", "en-IN"),
		ASREndpointingMs:  getIntOrDefault("ASR_ENDPOINTING_MS", 300),
		TTSProvider:       strings.ToLower(getStringOrDefault("TTS_PROVIDER", "deepgram")),
		TTSModel:          getStringOrDefault("TTS_MODEL", ""),
		TTSVoice:          getStringOrDefault("TTS_VOICE", ""),
		TTSFrameSize:      getIntOrDefault("TTS_FRAME_SIZE", 0),
		TTSCacheSize:      getIntOrDefault("TTS_CACHE_SIZE", 128),
		SynthesisTimeout:  getDurationOrDefault("SYNTHESIS_TIMEOUT", 30*time.Second),
		OpenAIApiKey:      getStringOrDefault("OPENAI_API_KEY", ""),
		ElevenLabsApiKey:  getStringOrDefault("ELEVENLABS_API_KEY", ""),
		AWSRegion:         getStringOrDefault("AWS_REGION", "us-east-1"),

		ChatSessionTTL:       getDurationOrDefault("CHAT_SESSION_TTL", 24*time.Hour),
		ChatRateLimit:        getStringOrDefault("CHAT_RATE_LIMIT", "60-M"),
		ChatMaxMessageLength: getIntOrDefault("CHAT_MAX_MESSAGE_LENGTH", 4000),
	}
	return nil
}

// Validate 检查启动必需的密钥
func (c *Config) Validate() error {
	var errs []error
	if c.LLMApiKey == "" && c.LLMProvider != "ollama" {
		errs = append(errs, errors.New("GOOGLE_API_KEY (or LLM_API_KEY) is required"))
	}
	switch c.LLMProvider {
	case "gemini", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.DeepgramApiKey == "" {
		errs = append(errs, errors.New("DEEPGRAM_API_KEY is required"))
	}
	switch c.TTSProvider {
	case "deepgram", "aws":
	case "openai":
		if c.OpenAIApiKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for openai tts"))
		}
	case "elevenlabs":
		if c.ElevenLabsApiKey == "" {
			errs = append(errs, errors.New("ELEVENLABS_API_KEY is required for elevenlabs tts"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported TTS_PROVIDER %q", c.TTSProvider))
	}
	if c.MemoryMaxTurns <= 0 {
		errs = append(errs, errors.New("MEMORY_MAX_TURNS must be positive"))
	}
	return errors.Join(errs...)
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Mode == "production"
}

// getStringOrDefault 获取环境变量值，如果为空则返回默认值
func getStringOrDefault(key, defaultValue string) string {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolOrDefault 获取布尔环境变量值，如果为空则返回默认值
func getBoolOrDefault(key string, defaultValue bool) bool {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return utils.GetBoolEnv(key)
}

// getIntOrDefault 获取整数环境变量值，如果为空则返回默认值
func getIntOrDefault(key string, defaultValue int) int {
	value := utils.GetIntEnv(key)
	if value == 0 {
		return defaultValue
	}
	return int(value)
}

func getFloatOrDefault(key string, defaultValue float32) float32 {
	if utils.GetEnv(key) == "" {
		return defaultValue
	}
	return float32(utils.GetFloatEnv(key))
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := utils.GetDurationEnv(key)
	if value <= 0 {
		return defaultValue
	}
	return value
}
