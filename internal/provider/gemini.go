package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type GeminiProvider struct {
	baseURL string
}

func NewGemini(baseURL string) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultGeminiURL
	}
	return &GeminiProvider{baseURL: baseURL}
}

func (p *GeminiProvider) ID() string {
	return Gemini
}

// BuildRequest targets {base}/models/{model}:generateContent with the key in
// the query string.
func (p *GeminiProvider) BuildRequest(ctx context.Context, model, apiKey, prompt string) (*http.Request, error) {
	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": prompt}},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      temperature,
			"topK":             64,
			"topP":             0.95,
			"maxOutputTokens":  geminiMaxTokens,
			"responseMimeType": "text/plain",
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, model, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// ParseResponse reads candidates[0].content.parts[0].text.
func (p *GeminiProvider) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	const path = "candidates[0].content.parts[0].text"
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ResponseShapeError{Provider: Gemini, Path: path, Err: err}
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 || resp.Candidates[0].Content.Parts[0].Text == "" {
		return "", &ResponseShapeError{Provider: Gemini, Path: path}
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
