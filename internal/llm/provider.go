// Package llm defines the minimal chat-client capability the extractors call.
// The pipeline treats the local structured-extraction service and the remote
// high-capability service identically at this boundary; they differ only in
// base URL, model name, and timeout.
package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the narrow interface core logic uses to call a chat model. Any
// OpenAI-compatible backend (an Ollama sidecar, a hosted API) can be adapted.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider adapts *openai.Client to the Client interface.
type OpenAIProvider struct {
	Inner *openai.Client
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}

// New builds a provider for an OpenAI-compatible endpoint. An empty apiKey is
// valid for unauthenticated local services.
func New(baseURL, apiKey string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}
}
