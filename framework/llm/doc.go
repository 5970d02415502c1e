// Package llm is the single outbound boundary of the report pipeline: one
// chat request to one of several interchangeable model backends.
//
// # Backends
//
// A backend is selected by tag:
//
//	ollama    local inference endpoint (/api/chat), honours NumCtx
//	gigachat  enterprise chat endpoint behind an OAuth token exchange
//	openai    any OpenAI-compatible chat completions endpoint
//	gemini    Google Gemini through google.golang.org/genai
//	dummy     scripted replies for tests and dry runs
//
// New fails fast with a *ConfigError for an unknown tag or missing
// credentials. Invoke never returns a raw error or lets a panic escape: the
// outcome is always a Response carrying either text or an *InvocationError.
// Nothing here retries.
//
//	backend, err := llm.New(llm.Selector{Type: "ollama", Model: "qwen2.5:7b", NumCtx: 32768})
//	if err != nil {
//	    return err
//	}
//	resp := llm.Invoke(ctx, backend, system, user)
//	if resp.Failed() {
//	    return resp.Err
//	}
package llm
