package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultGigaChatAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	DefaultGigaChatURL     = "https://gigachat.devices.sberbank.ru/api/v1"
	DefaultGigaChatScope   = "GIGACHAT_API_PERS"
	DefaultGigaChatModel   = "GigaChat"
)

type gigaChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type gigaChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type gigaChatToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// gigaChatBackend exchanges the authorization key for an access token, then
// posts one chat completion. GigaChat endpoints use a private CA, hence
// InsecureSkipVerify defaults to true for this backend.
type gigaChatBackend struct {
	authKey    string
	authURL    string
	baseURL    string
	scope      string
	model      string
	httpClient *http.Client
}

func newGigaChat(sel Selector) (Backend, error) {
	if strings.TrimSpace(sel.APIKey) == "" {
		return nil, &ConfigError{Backend: TypeGigaChat, Err: fmt.Errorf("%w: authorization key is required", ErrMissingCredentials)}
	}
	if sel.HTTPClient == nil {
		sel.InsecureSkipVerify = true
	}
	return &gigaChatBackend{
		authKey:    sel.APIKey,
		authURL:    orDefault(sel.AuthURL, DefaultGigaChatAuthURL),
		baseURL:    strings.TrimRight(orDefault(sel.BaseURL, DefaultGigaChatURL), "/"),
		scope:      orDefault(sel.Scope, DefaultGigaChatScope),
		model:      orDefault(sel.Model, DefaultGigaChatModel),
		httpClient: httpClient(sel),
	}, nil
}

func (b *gigaChatBackend) Name() string {
	return "gigachat:" + b.model
}

func (b *gigaChatBackend) Complete(ctx context.Context, system, user string) (string, error) {
	token, err := b.token(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(gigaChatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: DefaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal gigachat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create gigachat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := b.do(req)
	if err != nil {
		return "", err
	}

	var parsed gigaChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse gigachat response: %s", truncate(string(body), 400))
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (b *gigaChatBackend) token(ctx context.Context) (string, error) {
	form := url.Values{"scope": {b.scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create gigachat auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.NewString())
	req.Header.Set("Authorization", "Basic "+b.authKey)

	body, err := b.do(req)
	if err != nil {
		return "", fmt.Errorf("gigachat auth: %w", err)
	}

	var tok gigaChatToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to parse gigachat token: %s", truncate(string(body), 400))
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("gigachat auth returned no access token")
	}
	return tok.AccessToken, nil
}

func (b *gigaChatBackend) do(req *http.Request) ([]byte, error) {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gigachat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading gigachat response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gigachat non-success status=%d body=%s", resp.StatusCode, truncate(string(body), 400))
	}
	return body, nil
}
