package factory

import (
	"context"
	"fmt"

	"legal-assistant-be/pkg/ai"
	"legal-assistant-be/pkg/ai/anthropic"
	"legal-assistant-be/pkg/ai/deepseek"
	"legal-assistant-be/pkg/ai/openai"
)

// Config holds the credentials and model names per backend. A provider
// with an empty key is left out of the chain.
type Config struct {
	OpenAIKey     string
	OpenAIModel   string
	AnthropicKey  string
	ClaudeModel   string
	DeepSeekKey   string
	DeepSeekModel string
}

func NewProvider(providerType string, cfg Config) (ai.Provider, error) {
	switch providerType {
	case "openai":
		return openai.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel), nil
	case "claude":
		return anthropic.NewClaudeProvider(cfg.AnthropicKey, cfg.ClaudeModel), nil
	case "deepseek":
		return deepseek.NewDeepSeekProvider(cfg.DeepSeekKey, cfg.DeepSeekModel), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", providerType)
	}
}

// FallbackProvider tries each configured backend in order until one
// succeeds. The returned completion carries the name of the backend
// that answered.
type FallbackProvider struct {
	providers []ai.Provider
}

var _ ai.Provider = &FallbackProvider{}

// NewFallbackChain builds the ordered chain. preferred (when non-empty)
// is moved to the front; the rest keep openai, claude, deepseek order.
func NewFallbackChain(cfg Config, preferred string) (*FallbackProvider, error) {
	var chain []ai.Provider

	add := func(name, key string) {
		if key == "" {
			return
		}
		p, err := NewProvider(name, cfg)
		if err != nil {
			return
		}
		chain = append(chain, p)
	}

	add("openai", cfg.OpenAIKey)
	add("claude", cfg.AnthropicKey)
	add("deepseek", cfg.DeepSeekKey)

	if len(chain) == 0 {
		return nil, fmt.Errorf("no ai provider configured")
	}

	if preferred != "" {
		for i, p := range chain {
			if p.Name() == preferred {
				chain = append([]ai.Provider{p}, append(chain[:i:i], chain[i+1:]...)...)
				break
			}
		}
	}

	return &FallbackProvider{providers: chain}, nil
}

func (f *FallbackProvider) Name() string {
	return f.providers[0].Name()
}

func (f *FallbackProvider) Chat(ctx context.Context, history []ai.Message, opts ...ai.Option) (*ai.Completion, error) {
	var lastErr error
	for _, p := range f.providers {
		completion, err := p.Chat(ctx, history, opts...)
		if err == nil {
			return completion, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all ai providers failed: %w", lastErr)
}

func (f *FallbackProvider) Generate(ctx context.Context, prompt string, opts ...ai.Option) (*ai.Completion, error) {
	return f.Chat(ctx, []ai.Message{{Role: "user", Content: prompt}}, opts...)
}
