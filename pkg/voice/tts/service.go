package tts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/code-100-precent/maitri/pkg/errhandler"
	"github.com/code-100-precent/maitri/pkg/metrics"
	"github.com/code-100-precent/maitri/pkg/synthesizer"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const serviceName = "TTS"

// AudioSink 合成结果的发送端
type AudioSink interface {
	SendTTSAudio(ctx context.Context, data []byte) error
	SendTTSEnd(ctx context.Context) error
}

// Config 语音合成参数
type Config struct {
	Timeout time.Duration
	// FrameSize >0 时音频按该大小切分成多个二进制帧，否则整段发送
	FrameSize int
	// CacheSize 音频缓存条数，0 表示不缓存
	CacheSize int
}

// Service TTS服务实现
type Service struct {
	cfg         Config
	synthesizer synthesizer.SynthesisService
	cache       *lru.Cache[string, []byte]
	logger      *zap.Logger
	mu          sync.RWMutex
	closed      bool
}

// NewService 创建TTS服务
func NewService(synth synthesizer.SynthesisService, cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:         cfg,
		synthesizer: synth,
		logger:      logger,
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []byte](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// Synthesize 合成完整音频，失败或无音频时返回 SynthesisError
func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.mu.RLock()
	closed := s.closed
	synth := s.synthesizer
	s.mu.RUnlock()

	if closed || synth == nil {
		return nil, errhandler.NewSynthesisError(serviceName, "service closed", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errhandler.NewSynthesisError(serviceName, "text is empty", nil)
	}

	key := synth.CacheKey(text)
	if s.cache != nil {
		if audio, ok := s.cache.Get(key); ok {
			metrics.TTSCacheHits.Inc()
			return audio, nil
		}
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	audio, err := synthesizer.SynthesizeBytes(ctx, synth, text)
	if err != nil {
		msg := "synthesis failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "synthesis timed out"
		}
		return nil, errhandler.NewSynthesisError(serviceName, msg, err)
	}
	if s.cache != nil {
		s.cache.Add(key, audio)
	}
	return audio, nil
}

// Deliver 合成并发送：音频帧之后紧跟一个 tts_end；合成失败时什么都不发送
func (s *Service) Deliver(ctx context.Context, sink AudioSink, text string) error {
	audio, err := s.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	for _, frame := range Frames(audio, s.cfg.FrameSize) {
		if err := sink.SendTTSAudio(ctx, frame); err != nil {
			return err
		}
	}
	if err := sink.SendTTSEnd(ctx); err != nil {
		return err
	}
	s.logger.Debug("speech delivered", zap.Int("bytes", len(audio)))
	return nil
}

// Frames 按 size 切分音频，size<=0 时整段返回
func Frames(audio []byte, size int) [][]byte {
	if size <= 0 || len(audio) <= size {
		return [][]byte{audio}
	}
	frames := make([][]byte, 0, (len(audio)+size-1)/size)
	for start := 0; start < len(audio); start += size {
		end := min(start+size, len(audio))
		frames = append(frames, audio[start:end])
	}
	return frames
}

// Close 关闭服务
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.synthesizer != nil {
		return s.synthesizer.Close()
	}
	return nil
}
