package ai

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Completion is a provider reply. TokensUsed is zero when the backend
// does not report usage; callers must treat zero as "unmetered".
type Completion struct {
	Text       string
	TokensUsed int
	Provider   string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Provider defines the contract for any AI chat backend.
type Provider interface {
	// Name returns the provider code ("openai", "claude", "deepseek").
	Name() string

	// Chat sends a chat history to the model and returns the reply.
	Chat(ctx context.Context, history []Message, options ...Option) (*Completion, error)

	// Generate sends a single prompt to the model (convenience method).
	Generate(ctx context.Context, prompt string, options ...Option) (*Completion, error)
}
