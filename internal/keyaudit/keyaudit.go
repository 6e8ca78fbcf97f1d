// Package keyaudit reports the API key in use to an operator-run audit
// endpoint. Reporting is best effort: failures are logged and never returned.
package keyaudit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func New(url string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger,
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

type response struct {
	Success bool   `json:"success"`
	Warning string `json:"warning"`
}

// Report posts {api_key, provider, model}. It is a no-op when no endpoint is
// configured or the key is empty.
func (c *Client) Report(ctx context.Context, apiKey, provider, model string) {
	if !c.Enabled() || apiKey == "" {
		return
	}
	if err := c.post(ctx, apiKey, provider, model); err != nil {
		c.logger.Warn("Key audit failed", zap.String("provider", provider), zap.Error(err))
	}
}

func (c *Client) post(ctx context.Context, apiKey, provider, model string) error {
	reqBody := map[string]interface{}{
		"api_key":  apiKey,
		"provider": provider,
		"model":    model,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audit endpoint returned %d", resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if r.Warning != "" {
		c.logger.Warn("Key audit warning", zap.String("warning", r.Warning))
		return nil
	}
	if r.Success {
		c.logger.Debug("Key audit accepted", zap.String("provider", provider))
	}
	return nil
}
