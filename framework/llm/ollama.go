package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// DefaultOllamaURL is the local Ollama endpoint
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultOllamaModel is used when the selector names no model
	DefaultOllamaModel = "qwen2.5:7b"

	// DefaultNumCtx is large enough for the local prompt budget
	DefaultNumCtx = 32768
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

type ollamaBackend struct {
	baseURL    string
	model      string
	numCtx     int
	httpClient *http.Client
}

func newOllama(sel Selector) (Backend, error) {
	numCtx := sel.NumCtx
	if numCtx <= 0 {
		numCtx = DefaultNumCtx
	}
	return &ollamaBackend{
		baseURL:    strings.TrimRight(orDefault(sel.BaseURL, DefaultOllamaURL), "/"),
		model:      orDefault(sel.Model, DefaultOllamaModel),
		numCtx:     numCtx,
		httpClient: httpClient(sel),
	}, nil
}

func (b *ollamaBackend) Name() string {
	return "ollama:" + b.model
}

func (b *ollamaBackend) Complete(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Options: ollamaOptions{
			Temperature: DefaultTemperature,
			NumCtx:      b.numCtx,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed reading ollama response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama non-success status=%d body=%s", resp.StatusCode, truncate(string(body), 400))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse ollama response: %s", truncate(string(body), 400))
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama error: %s", parsed.Error)
	}

	return strings.TrimSpace(parsed.Message.Content), nil
}
