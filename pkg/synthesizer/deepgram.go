package synthesizer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/code-100-precent/maitri/pkg/utils"
	"github.com/sirupsen/logrus"
)

// DeepgramTTSConfig Deepgram Aura TTS配置
type DeepgramTTSConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key" env:"DEEPGRAM_API_KEY"`
	Model   string `json:"model" yaml:"model" default:"aura-asteria-en"`
	BaseURL string `json:"base_url" yaml:"base_url" default:"https://api.deepgram.com"`
	Timeout int    `json:"timeout" yaml:"timeout" default:"30"`
}

type DeepgramService struct {
	opt    DeepgramTTSConfig
	client *http.Client
}

const deepgramSpeakPath = "/v1/speak"

// NewDeepgramTTSConfig 创建 Deepgram TTS 配置
func NewDeepgramTTSConfig(apiKey string) DeepgramTTSConfig {
	opt := DeepgramTTSConfig{
		APIKey:  apiKey,
		Model:   "aura-asteria-en",
		BaseURL: "https://api.deepgram.com",
		Timeout: 30,
	}
	if opt.APIKey == "" {
		opt.APIKey = utils.GetEnv("DEEPGRAM_API_KEY")
	}
	return opt
}

func NewDeepgramService(opt DeepgramTTSConfig) *DeepgramService {
	return &DeepgramService{
		opt:    opt,
		client: &http.Client{Timeout: time.Duration(opt.Timeout) * time.Second},
	}
}

func (ds *DeepgramService) Provider() TTSProvider {
	return ProviderDeepgram
}

func (ds *DeepgramService) CacheKey(text string) string {
	return fmt.Sprintf("deepgram.tts-%s-%s.mp3", ds.opt.Model, textDigest(text))
}

func (ds *DeepgramService) Synthesize(ctx context.Context, handler SynthesisHandler, text string) error {
	if ds.opt.APIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	text = CleanText(text)
	if text == "" {
		return fmt.Errorf("deepgram tts: empty text")
	}

	var buf bytes.Buffer
	err := requests.
		URL(ds.opt.BaseURL + deepgramSpeakPath).
		Client(ds.client).
		Param("model", ds.opt.Model).
		Header("Authorization", "Token "+ds.opt.APIKey).
		BodyJSON(map[string]string{"text": text}).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		if requests.HasStatusErr(err, http.StatusTooManyRequests) {
			return fmt.Errorf("deepgram tts: rate limited (429): %w", err)
		}
		return fmt.Errorf("deepgram tts: %w", err)
	}

	if buf.Len() > 0 {
		handler.OnMessage(buf.Bytes())
	}

	logrus.WithFields(logrus.Fields{
		"provider":   "deepgram",
		"model":      ds.opt.Model,
		"text":       text,
		"audio_size": buf.Len(),
	}).Info("deepgram tts: synthesis completed")
	return nil
}

func (ds *DeepgramService) Close() error {
	ds.client.CloseIdleConnections()
	return nil
}

