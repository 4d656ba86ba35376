// Package llm adapts OpenAI-compatible chat backends for the optional
// rewriter assist. Provider selection comes from configuration; "none"
// keeps the whole pipeline rule-based.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Provider names accepted in configuration.
const (
	ProviderNone             = "none"
	ProviderOpenAICompatible = "openai_compatible"
)

// Config selects and addresses the chat backend.
type Config struct {
	Provider string // none | openai_compatible
	BaseURL  string
	APIKey   string
	Model    string
}

// Client is the minimal interface core logic needs to call a chat model.
// It mirrors CreateChatCompletion so any OpenAI-compatible or local
// backend can be adapted.
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

// New builds a Client from configuration. Provider none returns a nil
// client and no error; callers treat nil as "assist disabled".
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", ProviderNone:
		return nil, nil
	case ProviderOpenAICompatible:
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		return &OpenAIProvider{Inner: openai.NewClientWithConfig(oc)}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
