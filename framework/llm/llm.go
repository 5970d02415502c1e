package llm

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultTemperature is the sampling temperature for every backend
	DefaultTemperature = 0.2

	// DefaultTimeout bounds a single model call. Report generation over a
	// large prompt on a local model is slow.
	DefaultTimeout = 10 * time.Minute
)

// Backend tags
const (
	TypeOllama   = "ollama"
	TypeGigaChat = "gigachat"
	TypeOpenAI   = "openai"
	TypeGemini   = "gemini"
	TypeDummy    = "dummy"
)

// Backend is a model-serving endpoint. Complete issues exactly one request.
type Backend interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// Selector picks and configures a backend
type Selector struct {
	// Type is the backend tag: ollama, gigachat, openai, gemini or dummy
	Type    string
	Model   string
	APIKey  string
	BaseURL string

	// AuthURL and Scope configure the GigaChat OAuth exchange
	AuthURL string
	Scope   string

	// NumCtx is the context window requested from a local backend
	NumCtx int

	Timeout            time.Duration
	InsecureSkipVerify bool

	// Script drives the dummy backend
	Script string

	// HTTPClient overrides the client built from Timeout and InsecureSkipVerify
	HTTPClient *http.Client
}

// Factory builds a backend from a selector
type Factory func(Selector) (Backend, error)

var factories = map[string]Factory{
	TypeOllama:   newOllama,
	TypeGigaChat: newGigaChat,
	TypeOpenAI:   newOpenAI,
	TypeGemini:   newGemini,
	TypeDummy:    newDummy,
}

// Types returns the known backend tags, sorted
func Types() []string {
	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsLocal reports whether the tag selects a local inference endpoint
func IsLocal(tag string) bool {
	return normalize(tag) == TypeOllama
}

// New builds the backend named by sel.Type. An unknown tag is a configuration
// error; no connection is attempted here.
func New(sel Selector) (Backend, error) {
	tag := normalize(sel.Type)
	f, ok := factories[tag]
	if !ok {
		return nil, &ConfigError{Backend: sel.Type, Err: ErrUnknownBackend}
	}
	return f(sel)
}

func normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Response is the outcome of one model call: text or an error, never both
type Response struct {
	Text string
	Err  *InvocationError
}

// Failed reports whether the call failed
func (r Response) Failed() bool {
	return r.Err != nil
}

// Invoke calls the backend once. Every failure, including a panic inside the
// backend, comes back as Response.Err.
func Invoke(ctx context.Context, b Backend, system, user string) (resp Response) {
	name := b.Name()
	defer func() {
		if r := recover(); r != nil {
			resp = Response{Err: &InvocationError{Backend: name, Err: fmt.Errorf("backend panicked: %v", r)}}
		}
	}()

	text, err := b.Complete(ctx, system, user)
	if err != nil {
		return Response{Err: &InvocationError{Backend: name, Err: err}}
	}
	return Response{Text: text}
}

// Sentinel errors
var (
	// ErrUnknownBackend indicates an unsupported backend tag
	ErrUnknownBackend = errors.New("unknown llm backend")

	// ErrMissingCredentials indicates a backend was selected without its credentials
	ErrMissingCredentials = errors.New("missing llm credentials")
)

// ConfigError reports a backend that cannot be built from its selector
type ConfigError struct {
	Backend string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("llm backend %q: %v", e.Backend, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// InvocationError reports a failed model call
type InvocationError struct {
	Backend string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if err is a configuration error
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func httpClient(sel Selector) *http.Client {
	if sel.HTTPClient != nil {
		return sel.HTTPClient
	}
	timeout := sel.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}
	if sel.InsecureSkipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
