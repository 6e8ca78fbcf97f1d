package persistence

import (
	"context"
	"fmt"

	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

// Keys under which settings are kept in a KV store.
const (
	SettingsKey = "dichai-settings"
	APIKeyKey   = "dichai-api-key"
)

// KV is a string key-value store. Get reports false for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// SaveSettings writes the full settings blob and, separately, the API key.
// An empty API key removes the standalone entry.
func SaveSettings(ctx context.Context, kv KV, s *session.Session, catalog *provider.Catalog, settings Settings) error {
	data, err := Serialize(s, catalog, settings)
	if err != nil {
		return err
	}
	if err := kv.Set(ctx, SettingsKey, string(data)); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if settings.APIKey == "" {
		err = kv.Remove(ctx, APIKeyKey)
	} else {
		err = kv.Set(ctx, APIKeyKey, settings.APIKey)
	}
	if err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}
	s.MarkClean()
	return nil
}

// LoadSettings restores the saved settings into s. found is false when
// nothing has been saved; the standalone API key is still returned then.
func LoadSettings(ctx context.Context, kv KV, s *session.Session, catalog *provider.Catalog) (settings Settings, warnings []string, found bool, err error) {
	key, _, err := kv.Get(ctx, APIKeyKey)
	if err != nil {
		return Settings{}, nil, false, fmt.Errorf("failed to read api key: %w", err)
	}

	blob, ok, err := kv.Get(ctx, SettingsKey)
	if err != nil {
		return Settings{}, nil, false, fmt.Errorf("failed to read settings: %w", err)
	}
	if !ok {
		return Settings{APIKey: key}, nil, false, nil
	}

	settings, warnings, err = Deserialize([]byte(blob), s, catalog)
	if err != nil {
		return Settings{}, nil, false, err
	}
	if settings.APIKey == "" {
		settings.APIKey = key
	}
	return settings, warnings, true, nil
}

// ClearSettings removes both saved entries.
func ClearSettings(ctx context.Context, kv KV) error {
	for _, k := range []string{SettingsKey, APIKeyKey} {
		if err := kv.Remove(ctx, k); err != nil {
			return fmt.Errorf("failed to remove %s: %w", k, err)
		}
	}
	return nil
}
