// Package provider normalizes the four model backends into one call:
// text in, text out.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	Gemini     = "gemini"
	OpenAI     = "openai"
	XAI        = "xai"
	OpenRouter = "openrouter"
)

const (
	DefaultGeminiURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultOpenAIURL     = "https://api.openai.com/v1"
	DefaultXAIURL        = "https://api.x.ai/v1"
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
	DefaultReferer       = "https://dichai.local"
)

// Shared sampling settings.
const (
	temperature     = 0.7
	chatMaxTokens   = 4000
	geminiMaxTokens = 65536
)

// Provider builds the HTTP request for one backend and extracts the reply
// text from its response body.
type Provider interface {
	ID() string
	BuildRequest(ctx context.Context, model, apiKey, prompt string) (*http.Request, error)
	ParseResponse(body []byte) (string, error)
}

// Endpoints overrides provider base URLs; empty fields use the defaults.
type Endpoints struct {
	Gemini     string `mapstructure:"gemini"`
	OpenAI     string `mapstructure:"openai"`
	XAI        string `mapstructure:"xai"`
	OpenRouter string `mapstructure:"openrouter"`
}

// Builtin returns the four standard providers.
func Builtin(ep Endpoints, referer string) []Provider {
	return []Provider{
		NewGemini(ep.Gemini),
		NewOpenAI(ep.OpenAI),
		NewXAI(ep.XAI),
		NewOpenRouter(ep.OpenRouter, referer),
	}
}

var (
	ErrUnknownModel    = errors.New("unknown model")
	ErrUnknownProvider = errors.New("unknown provider")
)

// ProviderError reports a failed call: a non-2xx status with its body, or an
// unsupported provider (Status 0).
type ProviderError struct {
	Provider string
	Status   int
	Body     string
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Status, e.Body)
}

// ResponseShapeError means the backend answered 2xx but the reply text was
// not where the provider expects it.
type ResponseShapeError struct {
	Provider string
	Path     string
	Err      error
}

func (e *ResponseShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unexpected response format at %s: %v", e.Provider, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: unexpected response format: missing %s", e.Provider, e.Path)
}

func (e *ResponseShapeError) Unwrap() error {
	return e.Err
}
