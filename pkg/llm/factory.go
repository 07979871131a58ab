package llm

import (
	"context"
	"fmt"
	"strings"
)

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// Config 提供者配置
type Config struct {
	Provider string
	ApiKey   string
	BaseURL  string
}

// NewLLMProvider 根据配置创建 LLM 提供者，未指定时默认 Gemini
func NewLLMProvider(ctx context.Context, cfg Config) (LLMProvider, error) {
	providerType := ProviderType(strings.ToLower(strings.TrimSpace(cfg.Provider)))
	if providerType == "" {
		providerType = ProviderTypeGemini
	}

	switch providerType {
	case ProviderTypeGemini:
		if cfg.ApiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		return NewGeminiProvider(ctx, cfg.ApiKey, cfg.BaseURL)
	case ProviderTypeOpenAI:
		if cfg.ApiKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		return NewOpenAIProvider(cfg.ApiKey, cfg.BaseURL), nil
	case ProviderTypeOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		apiKey := cfg.ApiKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return newOpenAICompatible(ProviderTypeOllama, apiKey, baseURL), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
