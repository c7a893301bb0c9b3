package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient runs single-shot completions for the direct-search strategy.
type ChatClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewChatClient creates a chat completion client.
func NewChatClient(cfg *Config, model string, temperature float32) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &ChatClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temperature,
	}
}

// Complete sends a system prompt plus the user message and returns the reply text.
func (c *ChatClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
