package synthesizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/code-100-precent/maitri/pkg/utils"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// ElevenLabsConfig ElevenLabs TTS配置
type ElevenLabsConfig struct {
	APIKey       string `json:"api_key" yaml:"api_key" env:"ELEVENLABS_API_KEY"`
	VoiceID      string `json:"voice_id" yaml:"voice_id" default:"21m00Tcm4TlvDq8ikWAM"` // 默认 Rachel 音色
	ModelID      string `json:"model_id" yaml:"model_id" default:"eleven_monolingual_v1"`
	LanguageCode string `json:"language_code" yaml:"language_code"`
	BaseURL      string `json:"base_url" yaml:"base_url" default:"https://api.elevenlabs.io/v1"`
	Timeout      int    `json:"timeout" yaml:"timeout" default:"30"`
	// 语音设置
	Stability       float64 `json:"stability" yaml:"stability" default:"0.5"`                // 0.0-1.0
	SimilarityBoost float64 `json:"similarity_boost" yaml:"similarity_boost" default:"0.75"` // 0.0-1.0
	Style           float64 `json:"style" yaml:"style" default:"0.0"`                        // 0.0-1.0
	UseSpeakerBoost bool    `json:"use_speaker_boost" yaml:"use_speaker_boost" default:"true"`
}

type ElevenLabsService struct {
	opt    ElevenLabsConfig
	client *resty.Client
}

// ElevenLabsRequest ElevenLabs API 请求
type ElevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id,omitempty"`
	VoiceSettings *ElevenLabsVoiceSettings `json:"voice_settings,omitempty"`
	LanguageCode  string                   `json:"language_code,omitempty"`
}

// ElevenLabsVoiceSettings 音色设置
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// NewElevenLabsConfig 创建 ElevenLabs TTS 配置
func NewElevenLabsConfig(apiKey, voiceID string) ElevenLabsConfig {
	opt := ElevenLabsConfig{
		APIKey:          apiKey,
		VoiceID:         voiceID,
		ModelID:         "eleven_monolingual_v1",
		BaseURL:         "https://api.elevenlabs.io/v1",
		Timeout:         30,
		Stability:       0.5,
		SimilarityBoost: 0.75,
		UseSpeakerBoost: true,
	}

	// 从环境变量获取默认值
	if opt.APIKey == "" {
		opt.APIKey = utils.GetEnv("ELEVENLABS_API_KEY")
	}
	if opt.VoiceID == "" {
		opt.VoiceID = "21m00Tcm4TlvDq8ikWAM"
	}
	return opt
}

// NewElevenLabsService 创建 ElevenLabs TTS 服务
func NewElevenLabsService(opt ElevenLabsConfig) *ElevenLabsService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(opt.BaseURL, "/")).
		SetTimeout(time.Duration(opt.Timeout) * time.Second)
	return &ElevenLabsService{opt: opt, client: client}
}

func (es *ElevenLabsService) Provider() TTSProvider {
	return ProviderElevenLabs
}

func (es *ElevenLabsService) CacheKey(text string) string {
	return fmt.Sprintf("elevenlabs.tts-%s-%s-%s.mp3", es.opt.VoiceID, es.opt.ModelID, textDigest(text))
}

func (es *ElevenLabsService) Synthesize(ctx context.Context, handler SynthesisHandler, text string) error {
	opt := es.opt
	if opt.APIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY is required")
	}
	text = CleanText(text)
	if text == "" {
		return fmt.Errorf("elevenlabs tts: empty text")
	}

	req := ElevenLabsRequest{
		Text:    text,
		ModelID: opt.ModelID,
		VoiceSettings: &ElevenLabsVoiceSettings{
			Stability:       opt.Stability,
			SimilarityBoost: opt.SimilarityBoost,
			Style:           opt.Style,
			UseSpeakerBoost: opt.UseSpeakerBoost,
		},
		LanguageCode: opt.LanguageCode,
	}

	resp, err := es.client.R().
		SetContext(ctx).
		SetHeader("xi-api-key", opt.APIKey).
		SetHeader("Accept", "audio/mpeg").
		SetBody(req).
		Post("/text-to-speech/" + opt.VoiceID)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	audioData := resp.Body()
	if len(audioData) > 0 {
		handler.OnMessage(audioData)
	}

	logrus.WithFields(logrus.Fields{
		"provider":   "elevenlabs",
		"text":       text,
		"audio_size": len(audioData),
		"voice_id":   opt.VoiceID,
	}).Info("elevenlabs tts: synthesis completed")
	return nil
}

func (es *ElevenLabsService) Close() error {
	return nil
}
