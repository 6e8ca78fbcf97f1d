package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/dichai/internal/metrics"
	"github.com/valpere/dichai/internal/postprocess"
)

// Adapter dispatches calls to the registered providers.
type Adapter struct {
	providers map[string]Provider
	catalog   *Catalog
	client    *http.Client
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

type Option func(*Adapter)

// WithHTTPClient replaces the default client, which has no timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.client = c
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// WithProviders registers providers, replacing any with the same id.
func WithProviders(ps ...Provider) Option {
	return func(a *Adapter) {
		for _, p := range ps {
			a.providers[p.ID()] = p
		}
	}
}

// NewAdapter returns an adapter over the built-in providers at their default
// endpoints; use WithProviders to override.
func NewAdapter(catalog *Catalog, opts ...Option) *Adapter {
	if catalog == nil {
		catalog = NewCatalog()
	}
	a := &Adapter{
		providers: make(map[string]Provider),
		catalog:   catalog,
		client:    &http.Client{},
		logger:    zap.NewNop(),
	}
	for _, p := range Builtin(Endpoints{}, "") {
		a.providers[p.ID()] = p
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Catalog() *Catalog {
	return a.catalog
}

// CallModel resolves model to its provider and calls it.
func (a *Adapter) CallModel(ctx context.Context, model, apiKey, prompt string) (string, error) {
	m, ok := a.catalog.Lookup(model)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return a.Call(ctx, m.Provider, m.ID, apiKey, prompt)
}

// Call sends prompt to providerID and returns the cleaned reply text.
func (a *Adapter) Call(ctx context.Context, providerID, model, apiKey, prompt string) (text string, err error) {
	p, ok := a.providers[providerID]
	if !ok {
		return "", &ProviderError{Provider: providerID, Message: "unsupported provider"}
	}

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		a.metrics.ObserveProvider(providerID, err, elapsed)
		fields := []zap.Field{
			zap.String("provider", providerID),
			zap.String("model", model),
			zap.Int("prompt_len", len(prompt)),
			zap.Duration("latency", elapsed),
		}
		if err != nil {
			a.logger.Warn("Provider call failed", append(fields, zap.Error(err))...)
			return
		}
		a.logger.Debug("Provider call succeeded", append(fields, zap.Int("reply_len", len(text)))...)
	}()

	req, err := p.BuildRequest(ctx, model, apiKey, prompt)
	if err != nil {
		return "", err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", providerID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response: %w", providerID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderError{
			Provider: providerID,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}

	raw, err := p.ParseResponse(body)
	if err != nil {
		return "", err
	}
	return postprocess.Clean(raw), nil
}

// MaskKey shortens an API key for logs.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "…" + key[len(key)-4:]
}

// ProviderFor returns the provider id serving model, or "" if unknown.
func (a *Adapter) ProviderFor(model string) string {
	if m, ok := a.catalog.Lookup(model); ok {
		return m.Provider
	}
	return ""
}
