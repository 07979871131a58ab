package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/code-100-precent/maitri/pkg/errhandler"
	"github.com/code-100-precent/maitri/pkg/memory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const serviceName = "Chat"

// DefaultMaxMessageLength 单条消息最大字符数
const DefaultMaxMessageLength = 4000

// NewSessionMessage 新会话确认文案
const NewSessionMessage = "New session started successfully"

// Generator 回复生成
type Generator interface {
	Generate(ctx context.Context, history []memory.Turn, utterance string) (string, error)
}

// Result 一次对话的结果
type Result struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}

// Stats 会话统计
type Stats struct {
	SessionID    string `json:"sessionId"`
	MessageCount int    `json:"messageCount"`
	Exists       bool   `json:"exists"`
}

// Service 文本对话服务，记忆按 sessionId 保存在 memory.Store 中，与语音会话互不相干
type Service struct {
	generator        Generator
	store            *memory.Store
	maxMessageLength int
	logger           *zap.Logger
}

// NewService 创建文本对话服务
func NewService(generator Generator, store *memory.Store, maxMessageLength int, logger *zap.Logger) *Service {
	if maxMessageLength <= 0 {
		maxMessageLength = DefaultMaxMessageLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		generator:        generator,
		store:            store,
		maxMessageLength: maxMessageLength,
		logger:           logger,
	}
}

// Chat 发送一条消息。sessionId 为空时分配新的会话
func (s *Service) Chat(ctx context.Context, sessionID, message string) (Result, error) {
	text, err := s.validate(message)
	if err != nil {
		return Result{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	mem := s.store.GetOrCreate(sessionID)
	reply, err := s.generator.Generate(ctx, mem.Snapshot(), text)
	if err != nil {
		s.logger.Warn("chat generation failed", zap.String("session", sessionID), zap.Error(err))
		return Result{}, err
	}
	mem.Append(memory.Turn{Human: text, Assistant: reply})

	return Result{Response: reply, SessionID: sessionID}, nil
}

func (s *Service) validate(message string) (string, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return "", errhandler.NewValidationError(serviceName, "Message is required and must be a non-empty string")
	}
	if utf8.RuneCountInString(text) > s.maxMessageLength {
		return "", errhandler.NewValidationError(serviceName,
			fmt.Sprintf("Message must be at most %d characters", s.maxMessageLength))
	}
	return text, nil
}

// NewSession 清除旧会话（如有）并返回新的 sessionId
func (s *Service) NewSession(previous string) string {
	if previous = strings.TrimSpace(previous); previous != "" {
		s.store.Delete(previous)
	}
	return uuid.NewString()
}

// Stats 返回会话消息数，不会创建会话
func (s *Service) Stats(sessionID string) Stats {
	stats := Stats{SessionID: sessionID}
	if mem, ok := s.store.Get(sessionID); ok {
		stats.Exists = true
		stats.MessageCount = mem.Len() * 2
	}
	return stats
}
