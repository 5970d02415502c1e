package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when the selector names no model
const DefaultGeminiModel = "gemini-2.0-flash"

type geminiBackend struct {
	sel   Selector
	model string
}

func newGemini(sel Selector) (Backend, error) {
	if strings.TrimSpace(sel.APIKey) == "" {
		return nil, &ConfigError{Backend: TypeGemini, Err: fmt.Errorf("%w: api key is required", ErrMissingCredentials)}
	}
	return &geminiBackend{
		sel:   sel,
		model: orDefault(sel.Model, DefaultGeminiModel),
	}, nil
}

func (b *geminiBackend) Name() string {
	return "gemini:" + b.model
}

func (b *geminiBackend) Complete(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.ClientConfig{
		APIKey:     b.sel.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient(b.sel),
	}
	if b.sel.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: b.sel.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to create GenAI client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, b.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](DefaultTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}
