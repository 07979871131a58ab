package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider talks to any OpenAI-compatible chat completion endpoint.
type OpenAIProvider struct {
	client       *openai.Client
	providerType ProviderType
}

// NewOpenAIProvider creates a provider for baseURL. An empty baseURL means
// the public OpenAI API.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	return newOpenAICompatible(ProviderTypeOpenAI, apiKey, baseURL)
}

func newOpenAICompatible(t ProviderType, apiKey, baseURL string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	config.BaseURL = strings.TrimRight(baseURL, "/")
	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(config),
		providerType: t,
	}
}

func (p *OpenAIProvider) Provider() ProviderType {
	return p.providerType
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:    req.Options.Model,
		Messages: openAIMessages(req),
	}
	if req.Options.Temperature != nil {
		request.Temperature = *req.Options.Temperature
	}
	if req.Options.MaxTokens != nil {
		request.MaxTokens = *req.Options.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		if isOpenAIRateLimit(err) {
			return "", fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (p *OpenAIProvider) Close() error {
	return nil
}

func openAIMessages(req Request) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return messages
}

func isOpenAIRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Type == "insufficient_quota"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
