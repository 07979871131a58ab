package synthesizer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/code-100-precent/maitri/pkg/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIConfig OpenAI TTS配置
type OpenAIConfig struct {
	APIKey  string  `json:"api_key" yaml:"api_key" env:"OPENAI_API_KEY"`
	Model   string  `json:"model" yaml:"model" default:"tts-1"`
	Voice   string  `json:"voice" yaml:"voice" default:"alloy"`
	Speed   float64 `json:"speed" yaml:"speed" default:"1.0"`
	Codec   string  `json:"codec" yaml:"codec" default:"mp3"`
	BaseURL string  `json:"base_url" yaml:"base_url" default:"https://api.openai.com/v1"`
}

type OpenAIService struct {
	opt    OpenAIConfig
	client *openai.Client
}

// NewOpenAIConfig 创建 OpenAI TTS 配置
func NewOpenAIConfig(apiKey string) OpenAIConfig {
	opt := OpenAIConfig{
		APIKey:  apiKey,
		Model:   "tts-1",
		Voice:   "alloy",
		Speed:   1.0,
		Codec:   "mp3",
		BaseURL: "https://api.openai.com/v1",
	}

	// 从环境变量获取默认值
	if opt.APIKey == "" {
		opt.APIKey = utils.GetEnv("OPENAI_API_KEY")
	}
	return opt
}

// NewOpenAIService 创建 OpenAI TTS 服务
func NewOpenAIService(opt OpenAIConfig) *OpenAIService {
	config := openai.DefaultConfig(opt.APIKey)
	config.BaseURL = strings.TrimRight(opt.BaseURL, "/")
	return &OpenAIService{
		opt:    opt,
		client: openai.NewClientWithConfig(config),
	}
}

func (os *OpenAIService) Provider() TTSProvider {
	return ProviderOpenAI
}

func (os *OpenAIService) CacheKey(text string) string {
	return fmt.Sprintf("openai.tts-%s-%s-%s.%s", os.opt.Model, os.opt.Voice, textDigest(text), os.opt.Codec)
}

func (os *OpenAIService) Synthesize(ctx context.Context, handler SynthesisHandler, text string) error {
	if os.opt.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	text = CleanText(text)
	if text == "" {
		return fmt.Errorf("openai tts: empty text")
	}

	resp, err := os.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(os.opt.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(os.opt.Voice),
		ResponseFormat: openai.SpeechResponseFormat(os.opt.Codec),
		Speed:          os.opt.Speed,
	})
	if err != nil {
		return fmt.Errorf("openai tts: %w", err)
	}
	defer resp.Close()

	audioData, err := io.ReadAll(resp)
	if err != nil {
		return fmt.Errorf("failed to read audio data: %w", err)
	}
	if len(audioData) > 0 {
		handler.OnMessage(audioData)
	}

	logrus.WithFields(logrus.Fields{
		"provider":   "openai",
		"text":       text,
		"audio_size": len(audioData),
		"voice":      os.opt.Voice,
	}).Info("openai tts: synthesis completed")
	return nil
}

func (os *OpenAIService) Close() error {
	return nil
}
