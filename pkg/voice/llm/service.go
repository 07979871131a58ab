package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/code-100-precent/maitri/pkg/errhandler"
	"github.com/code-100-precent/maitri/pkg/llm"
	"github.com/code-100-precent/maitri/pkg/memory"
	"github.com/code-100-precent/maitri/pkg/metrics"
	"go.uber.org/zap"
)

const serviceName = "LLM"

// Config 回复生成参数
type Config struct {
	Persona     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Service 回复生成：构建提示词 -> 调用模型 -> 提取回复
type Service struct {
	cfg          Config
	provider     llm.LLMProvider
	errorHandler *errhandler.Handler
	logger       *zap.Logger
	mu           sync.RWMutex
	closed       bool
}

// NewService 创建LLM服务
func NewService(provider llm.LLMProvider, cfg Config, errorHandler *errhandler.Handler, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errorHandler == nil {
		errorHandler = errhandler.NewHandler(logger)
	}
	return &Service{
		cfg:          cfg,
		provider:     provider,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Generate 根据历史和本轮输入生成回复。失败时返回 GenerationError 或 RateLimited
func (s *Service) Generate(ctx context.Context, history []memory.Turn, utterance string) (string, error) {
	s.mu.RLock()
	closed := s.closed
	provider := s.provider
	s.mu.RUnlock()

	if closed || provider == nil {
		return "", errhandler.NewGenerationError(serviceName, "service closed", nil)
	}
	if strings.TrimSpace(utterance) == "" {
		return "", errhandler.NewValidationError(serviceName, "utterance is empty")
	}

	raw, err := s.invoke(ctx, provider, s.BuildRequest(history, utterance))
	if err != nil {
		return "", s.classify(err)
	}
	reply, err := ExtractReply(raw)
	if err != nil {
		return "", err
	}
	s.logger.Debug("reply generated",
		zap.Int("history", len(history)),
		zap.Int("replyLength", len(reply)),
	)
	return reply, nil
}

// BuildRequest 人设 + 历史（按时间顺序的 user/assistant 交替消息）+ 本轮输入
func (s *Service) BuildRequest(history []memory.Turn, utterance string) llm.Request {
	messages := make([]llm.Message, 0, len(history)*2+1)
	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Human},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Assistant},
		)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: strings.TrimSpace(utterance)})

	opts := llm.QueryOptions{
		Model:       s.cfg.Model,
		Temperature: llm.Float32Ptr(s.cfg.Temperature),
	}
	if s.cfg.MaxTokens > 0 {
		opts.MaxTokens = llm.IntPtr(s.cfg.MaxTokens)
	}
	return llm.Request{
		SystemPrompt: s.cfg.Persona,
		Messages:     messages,
		Options:      opts,
	}
}

func (s *Service) invoke(ctx context.Context, provider llm.LLMProvider, req llm.Request) (string, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() { metrics.GenerationDuration.Observe(time.Since(start).Seconds()) }()
	return provider.Generate(ctx, req)
}

// ExtractReply 去除首尾空白，空回复视为生成失败
func ExtractReply(raw string) (string, error) {
	reply := strings.TrimSpace(raw)
	if reply == "" {
		return "", errhandler.NewGenerationError(serviceName, "empty reply", llm.ErrEmptyResponse)
	}
	return reply, nil
}

func (s *Service) classify(err error) error {
	switch {
	case errors.Is(err, llm.ErrRateLimited), s.errorHandler.IsRateLimitError(err):
		return errhandler.NewRateLimitedError(serviceName, "rate limit exceeded", err)
	case errors.Is(err, llm.ErrEmptyResponse):
		return errhandler.NewGenerationError(serviceName, "empty reply", err)
	case errors.Is(err, context.DeadlineExceeded):
		return errhandler.NewGenerationError(serviceName, "generation timed out", err)
	default:
		return errhandler.NewGenerationError(serviceName, "generation failed", err)
	}
}

// Close 关闭服务
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.provider != nil {
		return s.provider.Close()
	}
	return nil
}
