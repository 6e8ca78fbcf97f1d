/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/valpere/dichai/internal/config"
	"github.com/valpere/dichai/internal/detector"
	"github.com/valpere/dichai/internal/metrics"
	"github.com/valpere/dichai/internal/orchestrator"
	"github.com/valpere/dichai/internal/persistence"
	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/redisstore"
	"github.com/valpere/dichai/internal/session"
	"github.com/valpere/dichai/internal/store"
	"github.com/valpere/dichai/internal/validator"
)

// buildAdapter wires the four providers with the configured endpoints.
func buildAdapter(catalog *provider.Catalog, m *metrics.Metrics) *provider.Adapter {
	return provider.NewAdapter(catalog,
		provider.WithProviders(provider.Builtin(cfg.Endpoints, cfg.Referer)...),
		provider.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		provider.WithLogger(logger),
		provider.WithMetrics(m),
	)
}

// buildOrchestrator returns an orchestrator that records into rec, which may
// be nil. det backs the output check when validate_output is set.
func buildOrchestrator(caller orchestrator.Caller, rec orchestrator.Recorder, m *metrics.Metrics, det *detector.Detector) *orchestrator.Orchestrator {
	oc := orchestrator.Config{
		Recorder: rec,
		Logger:   logger,
		Metrics:  m,
	}
	if cfg.ValidateOutput {
		oc.Validator = validator.New(det)
	}
	return orchestrator.New(caller, oc)
}

func openStore() (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// openKV returns the settings store selected by store.backend and a function
// that releases it.
func openKV(ctx context.Context) (persistence.KV, func() error, error) {
	if cfg.Store.Backend == config.BackendRedis {
		opts := []redisstore.Option{}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.Redis.Prefix))
		}
		rs := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return rs, rs.Close, nil
	}
	db, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

// configSettings is the selection and api key from config, with the model
// checked against the catalog.
func configSettings(catalog *provider.Catalog) persistence.Settings {
	settings := persistence.Settings{APIKey: cfg.APIKey, Selection: provider.DefaultSelection()}
	if sel, err := catalog.Select(cfg.Model); err == nil {
		settings.Selection = sel
	} else if cfg.Provider != "" {
		if sel, err := catalog.SwitchProvider(settings.Selection, cfg.Provider); err == nil {
			settings.Selection = sel
		}
	}
	return settings
}

// loadSession reads a session document. Warnings are logged.
func loadSession(path string, catalog *provider.Catalog) (*session.Session, persistence.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, persistence.Settings{}, fmt.Errorf("failed to read session file: %w", err)
	}
	s := session.New()
	settings, warnings, err := persistence.Deserialize(data, s, catalog)
	if err != nil {
		return nil, persistence.Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range warnings {
		logger.Warn("Session file", zap.String("path", path), zap.String("warning", w))
	}
	s.MarkClean()
	return s, settings, nil
}

func saveSession(path string, s *session.Session, catalog *provider.Catalog, settings persistence.Settings) error {
	data, err := persistence.Serialize(s, catalog, settings)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	s.MarkClean()
	return nil
}

// editSession loads path, applies fn and writes the result back.
func editSession(path string, fn func(s *session.Session, catalog *provider.Catalog, settings *persistence.Settings) error) error {
	catalog := provider.NewCatalog()
	s, settings, err := loadSession(path, catalog)
	if err != nil {
		return err
	}
	if err := fn(s, catalog, &settings); err != nil {
		return err
	}
	return saveSession(path, s, catalog, settings)
}

func writeOutput(path, text string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprintln(os.Stdout, text)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
