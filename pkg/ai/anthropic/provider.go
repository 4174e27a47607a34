package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"legal-assistant-be/pkg/ai"
)

type ClaudeProvider struct {
	APIKey    string
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ ai.Provider = &ClaudeProvider{}

func NewClaudeProvider(apiKey, modelName string) *ClaudeProvider {
	return &ClaudeProvider{
		APIKey:    apiKey,
		BaseURL:   "https://api.anthropic.com/v1",
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *ClaudeProvider) Name() string {
	return "claude"
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *ClaudeProvider) Chat(ctx context.Context, history []ai.Message, opts ...ai.Option) (*ai.Completion, error) {
	options := &ai.Options{}
	for _, opt := range opts {
		opt(options)
	}

	// The messages API takes the system prompt out of band.
	var system string
	messages := make([]chatMessage, 0, len(history))
	for _, msg := range history {
		if msg.Role == "system" {
			system = msg.Content
			continue
		}
		messages = append(messages, chatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	model := c.ModelName
	if options.Model != "" {
		model = options.Model
	}

	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	reqPayload := messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.BaseURL + "/messages"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claude request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("claude error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(bodyBytes, &msgResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	var text string
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	// Usage is not wired through here; downstream metering treats
	// zero as unmetered.
	return &ai.Completion{
		Text:       text,
		TokensUsed: 0,
		Provider:   c.Name(),
	}, nil
}

func (c *ClaudeProvider) Generate(ctx context.Context, prompt string, opts ...ai.Option) (*ai.Completion, error) {
	return c.Chat(ctx, []ai.Message{{Role: "user", Content: prompt}}, opts...)
}
