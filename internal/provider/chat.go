package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// chatProvider speaks the OpenAI chat-completions dialect shared by OpenAI,
// xAI and OpenRouter.
type chatProvider struct {
	id      string
	baseURL string
	headers map[string]string
}

func (p *chatProvider) ID() string {
	return p.id
}

func (p *chatProvider) BuildRequest(ctx context.Context, model, apiKey, prompt string) (*http.Request, error) {
	body := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": temperature,
		"max_tokens":  chatMaxTokens,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/chat/completions", p.baseURL), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// ParseResponse reads choices[0].message.content.
func (p *chatProvider) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	const path = "choices[0].message.content"
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ResponseShapeError{Provider: p.id, Path: path, Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &ResponseShapeError{Provider: p.id, Path: path}
	}
	return resp.Choices[0].Message.Content, nil
}
