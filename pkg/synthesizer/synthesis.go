package synthesizer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

var emojiRegex = regexp.MustCompile(`[\x{00A9}\x{00AE}\x{203C}\x{2049}\x{2122}\x{2139}\x{2194}-\x{2199}\x{21A9}-\x{21AA}\x{231A}-\x{231B}\x{2328}\x{23CF}\x{23E9}-\x{23F3}\x{23F8}-\x{23FA}\x{24C2}\x{25AA}-\x{25AB}\x{25B6}\x{25C0}\x{25FB}-\x{25FE}\x{2600}-\x{26FF}\x{2700}-\x{27BF}\x{2B05}-\x{2B07}\x{2B1B}-\x{2B1C}\x{2B50}\x{2B55}\x{3030}\x{303D}\x{3297}\x{3299}\x{1F004}\x{1F0CF}\x{1F170}-\x{1F251}\x{1F300}-\x{1F5FF}\x{1F600}-\x{1F64F}\x{1F680}-\x{1F6FF}\x{1F910}-\x{1F93E}\x{1F940}-\x{1F94C}\x{1F950}-\x{1F96B}\x{1F980}-\x{1F997}\x{1F9C0}-\x{1F9E6}\x{1FA70}-\x{1FA74}\x{1FA78}-\x{1FA7A}\x{1FA80}-\x{1FA86}\x{1FA90}-\x{1FAA8}\x{1FAB0}-\x{1FAB6}\x{1FAC0}-\x{1FAC2}\x{1FAD0}-\x{1FAD6}\x{1F1E6}-\x{1F1FF}\x{200D}\x{FE0F}]`)

// SynthesisHandler 接收合成出的音频数据，可能被调用多次
type SynthesisHandler interface {
	OnMessage([]byte)
}

type SynthesisService interface {
	Provider() TTSProvider
	// CacheKey 同一文本在相同配置下的缓存键
	CacheKey(text string) string
	Synthesize(ctx context.Context, handler SynthesisHandler, text string) error
	Close() error
}

// CleanText 去掉 emoji 和多余空白，避免被朗读出来
func CleanText(text string) string {
	text = emojiRegex.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func textDigest(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SynthesisBuffer 收集完整音频
type SynthesisBuffer struct {
	mu   sync.Mutex
	Data []byte
}

func (s *SynthesisBuffer) OnMessage(data []byte) {
	s.mu.Lock()
	s.Data = append(s.Data, data...)
	s.mu.Unlock()
}

func (s *SynthesisBuffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Data
}

// SynthesizeBytes 合成并返回完整音频，没有音频时返回错误
func SynthesizeBytes(ctx context.Context, svc SynthesisService, text string) ([]byte, error) {
	buf := &SynthesisBuffer{}
	if err := svc.Synthesize(ctx, buf, text); err != nil {
		return nil, err
	}
	data := buf.Bytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("synthesis: %s returned no audio", svc.Provider())
	}
	return data, nil
}

// Config 创建 TTS 服务所需的配置
type Config struct {
	Provider string
	APIKey   string
	Model    string
	Voice    string
	BaseURL  string
	// Region 仅 aws 使用
	Region   string
}

func NewSynthesisService(cfg Config) (SynthesisService, error) {
	switch TTSProvider(strings.ToLower(strings.TrimSpace(cfg.Provider))) {
	case ProviderDeepgram, "":
		opt := NewDeepgramTTSConfig(cfg.APIKey)
		if cfg.Model != "" {
			opt.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			opt.BaseURL = cfg.BaseURL
		}
		return NewDeepgramService(opt), nil
	case ProviderOpenAI:
		opt := NewOpenAIConfig(cfg.APIKey)
		if cfg.Model != "" {
			opt.Model = cfg.Model
		}
		if cfg.Voice != "" {
			opt.Voice = cfg.Voice
		}
		if cfg.BaseURL != "" {
			opt.BaseURL = cfg.BaseURL
		}
		return NewOpenAIService(opt), nil
	case ProviderElevenLabs:
		opt := NewElevenLabsConfig(cfg.APIKey, cfg.Voice)
		if cfg.Model != "" {
			opt.ModelID = cfg.Model
		}
		if cfg.BaseURL != "" {
			opt.BaseURL = cfg.BaseURL
		}
		return NewElevenLabsService(opt), nil
	case ProviderAWS:
		return NewAmazonService(NewAmazonTTSOption(cfg.Region, types.VoiceId(cfg.Voice))), nil
	default:
		return nil, fmt.Errorf("synthesis: unknown synthesis: %s", cfg.Provider)
	}
}
