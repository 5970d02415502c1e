package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when the selector names no model
const DefaultOpenAIModel = "gpt-4o-mini"

type openAIBackend struct {
	client *openai.Client
	model  string
}

func newOpenAI(sel Selector) (Backend, error) {
	if strings.TrimSpace(sel.APIKey) == "" && strings.TrimSpace(sel.BaseURL) == "" {
		return nil, &ConfigError{Backend: TypeOpenAI, Err: fmt.Errorf("%w: api key or base url is required", ErrMissingCredentials)}
	}

	cfg := openai.DefaultConfig(sel.APIKey)
	if sel.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(sel.BaseURL, "/")
	}
	cfg.HTTPClient = httpClient(sel)

	return &openAIBackend{
		client: openai.NewClientWithConfig(cfg),
		model:  orDefault(sel.Model, DefaultOpenAIModel),
	}, nil
}

func (b *openAIBackend) Name() string {
	return "openai:" + b.model
}

func (b *openAIBackend) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: DefaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
