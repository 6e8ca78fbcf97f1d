package provider

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

const customModelDescription = "Model tùy chỉnh của OpenRouter"

// Model binds a model id to the provider that serves it.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
}

var builtinModels = []Model{
	{ID: "gemini-2.0-flash-thinking-exp-01-21", Name: "Gemini Flash Thinking", Description: "Model nhanh nhất, chất lượng tốt", Provider: Gemini},
	{ID: "gemini-2.0-pro-exp-02-05", Name: "Gemini Pro", Description: "Model cân bằng giữa tốc độ và chất lượng", Provider: Gemini},
	{ID: "gemini-2.0-pro-vision-exp-02-05", Name: "Gemini Pro Vision", Description: "Model hỗ trợ hình ảnh và văn bản", Provider: Gemini},
	{ID: "gemini-2.0-ultra-exp-02-05", Name: "Gemini Ultra", Description: "Model cao cấp nhất, chất lượng tốt nhất", Provider: Gemini},
	{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", Description: "Model mạnh nhất của OpenAI", Provider: OpenAI},
	{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Description: "Model cân bằng của OpenAI", Provider: OpenAI},
	{ID: "grok-2-latest", Name: "grok-2-latest", Description: "Model của X.AI", Provider: XAI},
	{ID: "anthropic/claude-3-opus", Name: "Claude 3 Opus", Description: "Model cao cấp của Anthropic qua OpenRouter", Provider: OpenRouter},
	{ID: "anthropic/claude-3-sonnet", Name: "Claude 3 Sonnet", Description: "Model cân bằng của Anthropic qua OpenRouter", Provider: OpenRouter},
}

// Providers lists the provider ids in display order.
var Providers = []string{Gemini, OpenAI, XAI, OpenRouter}

// Selection is the provider/model pair the user has picked.
type Selection struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// DefaultSelection is the first gemini model.
func DefaultSelection() Selection {
	return Selection{Provider: Gemini, Model: builtinModels[0].ID}
}

// Catalog is the static model list plus user-added OpenRouter models.
type Catalog struct {
	mu     sync.RWMutex
	custom []Model
}

func NewCatalog() *Catalog {
	return &Catalog{}
}

func isBuiltin(id, provider string) bool {
	return slices.ContainsFunc(builtinModels, func(m Model) bool {
		return m.ID == id && m.Provider == provider
	})
}

// Models returns every known model, built-ins first.
func (c *Catalog) Models() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append(slices.Clone(builtinModels), c.custom...)
}

// ModelsFor returns the models served by provider, in catalog order.
func (c *Catalog) ModelsFor(provider string) []Model {
	var out []Model
	for _, m := range c.Models() {
		if m.Provider == provider {
			out = append(out, m)
		}
	}
	return out
}

// Lookup finds a model by id.
func (c *Catalog) Lookup(id string) (Model, bool) {
	for _, m := range c.Models() {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// AddCustomModel registers an OpenRouter model id.
func (c *Catalog) AddCustomModel(id string) (Model, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Model{}, fmt.Errorf("model id must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if isBuiltin(id, OpenRouter) || slices.ContainsFunc(c.custom, func(m Model) bool { return m.ID == id }) {
		return Model{}, fmt.Errorf("model %q already exists", id)
	}
	m := Model{ID: id, Name: id, Description: customModelDescription, Provider: OpenRouter}
	c.custom = append(c.custom, m)
	return m, nil
}

// CustomModels returns the OpenRouter models beyond the built-in defaults.
func (c *Catalog) CustomModels() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.custom)
}

// ReplaceCustomModels drops the current custom models and loads models in
// their place. Entries without an id, duplicates, and the built-in OpenRouter
// defaults are skipped. Missing names and descriptions get defaults.
func (c *Catalog) ReplaceCustomModels(models []Model) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.custom = nil
	for _, m := range models {
		id := strings.TrimSpace(m.ID)
		if id == "" || isBuiltin(id, OpenRouter) {
			continue
		}
		if slices.ContainsFunc(c.custom, func(x Model) bool { return x.ID == id }) {
			continue
		}
		name := m.Name
		if name == "" {
			name = id
		}
		desc := m.Description
		if desc == "" {
			desc = customModelDescription
		}
		c.custom = append(c.custom, Model{ID: id, Name: name, Description: desc, Provider: OpenRouter})
	}
}

// SwitchProvider selects provider. The current model is kept when the new
// provider serves it; otherwise the provider's first model is chosen.
func (c *Catalog) SwitchProvider(sel Selection, provider string) (Selection, error) {
	if !slices.Contains(Providers, provider) {
		return sel, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	models := c.ModelsFor(provider)
	if slices.ContainsFunc(models, func(m Model) bool { return m.ID == sel.Model }) {
		return Selection{Provider: provider, Model: sel.Model}, nil
	}
	next := Selection{Provider: provider}
	if len(models) > 0 {
		next.Model = models[0].ID
	}
	return next, nil
}

// Select validates that model belongs to the catalog and returns the
// matching selection.
func (c *Catalog) Select(model string) (Selection, error) {
	m, ok := c.Lookup(model)
	if !ok {
		return Selection{}, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return Selection{Provider: m.Provider, Model: m.ID}, nil
}
