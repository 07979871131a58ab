package llm

import (
	"context"
	"errors"
)

// ProviderType LLM 提供者类型
type ProviderType string

const (
	ProviderTypeGemini ProviderType = "gemini" // Google Gemini
	ProviderTypeOpenAI ProviderType = "openai" // OpenAI 兼容的 API
	ProviderTypeOllama ProviderType = "ollama" // Ollama (OpenAI 兼容接口)
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	// ErrRateLimited is returned when the engine rejects a call for quota or rate reasons.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrEmptyResponse is returned when the engine answers with no text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Message 统一的消息格式
type Message struct {
	Role    Role
	Content string
}

// QueryOptions 生成参数，nil 表示使用提供者默认值
type QueryOptions struct {
	Model       string
	Temperature *float32
	MaxTokens   *int
}

// Request 一次完整的生成请求：系统提示词 + 按时间顺序排列的消息，最后一条是本轮用户输入
type Request struct {
	SystemPrompt string
	Messages     []Message
	Options      QueryOptions
}

// LLMProvider 统一的 LLM 提供者接口
type LLMProvider interface {
	// Provider 返回提供者类型
	Provider() ProviderType
	// Generate 执行一次非流式生成
	Generate(ctx context.Context, req Request) (string, error)
	// Close 释放资源
	Close() error
}

func Float32Ptr(v float32) *float32 { return &v }

func IntPtr(v int) *int { return &v }
