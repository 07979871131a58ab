package synthesizer

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/sirupsen/logrus"
)

// AmazonTTSConfig AWS Polly 配置，凭证走 AWS 默认链
type AmazonTTSConfig struct {
	Region       string             `json:"region" env:"AWS_REGION" default:"us-east-1"`
	OutputFormat types.OutputFormat `json:"outputFormat" env:"output_format" default:"mp3"`
	VoiceId      types.VoiceId      `json:"voiceId" env:"voice_id" default:"Kajal"`
	Engine       types.Engine       `json:"engine" env:"engine" default:"neural"`
}

func (opt *AmazonTTSConfig) String() string {
	return fmt.Sprintf("AmazonTTSOption{Region: %s, Voice: %s, Format: %s}", opt.Region, opt.VoiceId, opt.OutputFormat)
}

func NewAmazonTTSOption(region string, voiceId types.VoiceId) AmazonTTSConfig {
	opt := AmazonTTSConfig{
		Region:       region,
		OutputFormat: types.OutputFormatMp3,
		VoiceId:      voiceId,
		Engine:       types.EngineNeural,
	}
	if opt.Region == "" {
		opt.Region = "us-east-1"
	}
	if opt.VoiceId == "" {
		opt.VoiceId = types.VoiceIdKajal
	}
	return opt
}

type AmazonService struct {
	opt AmazonTTSConfig
}

func NewAmazonService(opt AmazonTTSConfig) *AmazonService {
	return &AmazonService{opt: opt}
}

func (as *AmazonService) Provider() TTSProvider {
	return ProviderAWS
}

func (as *AmazonService) CacheKey(text string) string {
	return fmt.Sprintf("amazon.tts-%s-%s-%s.%s", as.opt.VoiceId, as.opt.Region, textDigest(text), as.opt.OutputFormat)
}

func (as *AmazonService) Synthesize(ctx context.Context, handler SynthesisHandler, text string) error {
	text = CleanText(text)
	if text == "" {
		return fmt.Errorf("amazon tts: empty text")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(as.opt.Region))
	if err != nil {
		return fmt.Errorf("amazon tts: load config: %w", err)
	}
	client := polly.NewFromConfig(cfg)
	resp, err := client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		OutputFormat: as.opt.OutputFormat,
		Text:         &text,
		VoiceId:      as.opt.VoiceId,
		Engine:       as.opt.Engine,
	})
	if err != nil {
		return fmt.Errorf("amazon tts: %w", err)
	}
	defer resp.AudioStream.Close()

	audioData, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return fmt.Errorf("amazon tts: read audio: %w", err)
	}
	if len(audioData) > 0 {
		handler.OnMessage(audioData)
	}
	logrus.WithFields(logrus.Fields{
		"provider":   "aws",
		"audio_size": len(audioData),
		"voice":      as.opt.VoiceId,
	}).Info("amazon tts: complete")
	return nil
}

func (as *AmazonService) Close() error {
	return nil
}
