package factory

import (
	"context"
	"errors"
	"testing"

	"legal-assistant-be/pkg/ai"
)

type fakeBackend struct {
	name  string
	fail  bool
	calls int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Chat(ctx context.Context, history []ai.Message, options ...ai.Option) (*ai.Completion, error) {
	f.calls++
	if f.fail {
		return nil, errors.New(f.name + " down")
	}
	return &ai.Completion{Text: "ok", TokensUsed: 10, Provider: f.name}, nil
}

func (f *fakeBackend) Generate(ctx context.Context, prompt string, options ...ai.Option) (*ai.Completion, error) {
	return f.Chat(ctx, []ai.Message{{Role: "user", Content: prompt}}, options...)
}

func chainNames(f *FallbackProvider) []string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.Name())
	}
	return names
}

func TestNewFallbackChainOrder(t *testing.T) {
	cfg := Config{OpenAIKey: "k1", AnthropicKey: "k2", DeepSeekKey: "k3"}

	tests := []struct {
		name      string
		preferred string
		want      []string
	}{
		{"default order", "", []string{"openai", "claude", "deepseek"}},
		{"preferred moves first", "deepseek", []string{"deepseek", "openai", "claude"}},
		{"preferred already first", "openai", []string{"openai", "claude", "deepseek"}},
		{"unknown preferred keeps order", "gemini", []string{"openai", "claude", "deepseek"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := NewFallbackChain(cfg, tt.preferred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := chainNames(chain)
			if len(got) != len(tt.want) {
				t.Fatalf("chain length = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chain[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewFallbackChainSkipsUnconfigured(t *testing.T) {
	chain, err := NewFallbackChain(Config{AnthropicKey: "k2"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := chainNames(chain)
	if len(got) != 1 || got[0] != "claude" {
		t.Fatalf("chain = %v, want [claude]", got)
	}
}

func TestNewFallbackChainEmpty(t *testing.T) {
	if _, err := NewFallbackChain(Config{}, ""); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestFallbackTriesNextProvider(t *testing.T) {
	first := &fakeBackend{name: "openai", fail: true}
	second := &fakeBackend{name: "claude"}
	chain := &FallbackProvider{providers: []ai.Provider{first, second}}

	completion, err := chain.Chat(context.Background(), []ai.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completion.Provider != "claude" {
		t.Errorf("provider = %s, want claude", completion.Provider)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", first.calls, second.calls)
	}
}

func TestFallbackAllProvidersFail(t *testing.T) {
	chain := &FallbackProvider{providers: []ai.Provider{
		&fakeBackend{name: "openai", fail: true},
		&fakeBackend{name: "claude", fail: true},
	}}

	_, err := chain.Chat(context.Background(), []ai.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error when every backend fails")
	}
}

func TestFallbackStopsAtFirstSuccess(t *testing.T) {
	first := &fakeBackend{name: "openai"}
	second := &fakeBackend{name: "claude"}
	chain := &FallbackProvider{providers: []ai.Provider{first, second}}

	completion, err := chain.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completion.Provider != "openai" {
		t.Errorf("provider = %s, want openai", completion.Provider)
	}
	if second.calls != 0 {
		t.Errorf("second backend called %d times, want 0", second.calls)
	}
}
