package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/dichai/internal/provider"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"), false)

	require.NoError(t, err)
	assert.Equal(t, provider.Gemini, cfg.Provider)
	assert.Equal(t, provider.DefaultSelection().Model, cfg.Model)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "./data/dichai.db", cfg.Store.Path)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, provider.DefaultOpenAIURL, cfg.Endpoints.OpenAI)
	assert.Zero(t, cfg.Timeout)
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
provider: openrouter
model: anthropic/claude-3-opus
timeout: 90s
store:
  backend: redis
redis:
  addr: cache:6379
  db: 2
endpoints:
  openrouter: http://proxy.local/v1
`)

	cfg, err := Load(viper.New(), path, true)

	require.NoError(t, err)
	assert.Equal(t, provider.OpenRouter, cfg.Provider)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "http://proxy.local/v1", cfg.Endpoints.OpenRouter)
	assert.Equal(t, provider.DefaultGeminiURL, cfg.Endpoints.Gemini)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "model: gpt-3.5-turbo\nstore:\n  path: /tmp/a.db\n")
	t.Setenv("DICHAI_MODEL", "gpt-4-turbo")
	t.Setenv("DICHAI_STORE_PATH", "/tmp/b.db")

	cfg, err := Load(viper.New(), path, true)

	require.NoError(t, err)
	assert.Equal(t, "gpt-4-turbo", cfg.Model)
	assert.Equal(t, "/tmp/b.db", cfg.Store.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"provider": "provider: bard\n",
		"backend":  "store:\n  backend: mongo\n",
		"yaml":     "provider: [\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(viper.New(), writeConfig(t, content), true)
			assert.Error(t, err)
		})
	}
}
