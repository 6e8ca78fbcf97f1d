// Package config loads dichai settings from flags, DICHAI_* environment
// variables, a YAML file and built-in defaults, in that order of priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/dichai/internal/provider"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Provider       string             `mapstructure:"provider"`
	Model          string             `mapstructure:"model"`
	APIKey         string             `mapstructure:"api_key"`
	Timeout        time.Duration      `mapstructure:"timeout"`
	Referer        string             `mapstructure:"referer"`
	Endpoints      provider.Endpoints `mapstructure:"endpoints"`
	Store          StoreConfig        `mapstructure:"store"`
	Redis          RedisConfig        `mapstructure:"redis"`
	KeyAuditURL    string             `mapstructure:"key_audit_url"`
	OCRURL         string             `mapstructure:"ocr_url"`
	ValidateOutput bool               `mapstructure:"validate_output"`
	Listen         string             `mapstructure:"listen"`
	Verbose        bool               `mapstructure:"verbose"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	sel := provider.DefaultSelection()
	v.SetDefault("provider", sel.Provider)
	v.SetDefault("model", sel.Model)
	v.SetDefault("api_key", "")
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("referer", provider.DefaultReferer)
	v.SetDefault("endpoints.gemini", provider.DefaultGeminiURL)
	v.SetDefault("endpoints.openai", provider.DefaultOpenAIURL)
	v.SetDefault("endpoints.xai", provider.DefaultXAIURL)
	v.SetDefault("endpoints.openrouter", provider.DefaultOpenRouterURL)
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.path", "./data/dichai.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "dichai:")
	v.SetDefault("key_audit_url", "")
	v.SetDefault("ocr_url", "")
	v.SetDefault("validate_output", false)
	v.SetDefault("listen", ":8080")
	v.SetDefault("verbose", false)
}

// DefaultPath returns $HOME/.config/dichai/config.yaml, or "" without a home
// directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "dichai", "config.yaml")
}

// Load reads path into v and decodes the merged result. A missing file is an
// error only when required is set.
func Load(v *viper.Viper, path string, required bool) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("DICHAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if err := readFile(v, path); err != nil {
			if required || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Provider != "" && !slices.Contains(provider.Providers, c.Provider) {
		return fmt.Errorf("%w: %s", provider.ErrUnknownProvider, c.Provider)
	}
	switch c.Store.Backend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q (want %s or %s)", c.Store.Backend, BackendSQLite, BackendRedis)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}
