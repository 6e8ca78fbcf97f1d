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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/dichai/internal/config"
	"github.com/valpere/dichai/internal/detector"
	"github.com/valpere/dichai/internal/keyaudit"
	"github.com/valpere/dichai/internal/metrics"
	"github.com/valpere/dichai/internal/orchestrator"
	"github.com/valpere/dichai/internal/persistence"
	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/server"
	"github.com/valpere/dichai/internal/session"
)

const shutdownTimeout = 10 * time.Second

var (
	serveSession string
	serveNoStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a session over a JSON HTTP API",
	Long: `Start an HTTP server that holds one session and exposes its editing
operations, the translation pipeline, the model catalog, the settings store
and Prometheus metrics at /metrics.

The session starts from --session when given, otherwise from the stored
settings, otherwise empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg)

		catalog := provider.NewCatalog()

		var (
			kv  persistence.KV
			rec orchestrator.Recorder
		)
		if !serveNoStore {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			rec = db
			kv = db
			if cfg.Store.Backend == config.BackendRedis {
				rkv, closeKV, err := openKV(ctx)
				if err != nil {
					return err
				}
				defer closeKV()
				kv = rkv
			}
		}

		s, settings, err := initialSession(ctx, catalog, kv)
		if err != nil {
			return err
		}

		det := detector.New()
		orch := buildOrchestrator(buildAdapter(catalog, m), rec, m, det)
		srv := server.New(s, orch, settings, server.Config{
			Catalog:  catalog,
			KV:       kv,
			Audit:    keyaudit.New(cfg.KeyAuditURL, logger),
			Detector: det,
			Gatherer: reg,
			Logger:   logger,
		})

		httpServer := &http.Server{
			Addr:              cfg.Listen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("Listening", zap.String("addr", cfg.Listen), zap.String("store", cfg.Store.Backend))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Info("Shutting down")
			return httpServer.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func initialSession(ctx context.Context, catalog *provider.Catalog, kv persistence.KV) (*session.Session, persistence.Settings, error) {
	if serveSession != "" {
		s, settings, err := loadSession(serveSession, catalog)
		if err != nil {
			return nil, persistence.Settings{}, err
		}
		return s, settings.WithSelection(configSettings(catalog).Selection), nil
	}
	s := session.New()
	if kv != nil {
		settings, warnings, found, err := persistence.LoadSettings(ctx, kv, s, catalog)
		if err != nil {
			return nil, persistence.Settings{}, fmt.Errorf("failed to load settings: %w", err)
		}
		for _, w := range warnings {
			logger.Warn("Saved settings", zap.String("warning", w))
		}
		if found {
			if cfg.APIKey != "" {
				settings.APIKey = cfg.APIKey
			}
			return s, settings.WithSelection(configSettings(catalog).Selection), nil
		}
	}
	s.MarkClean()
	return s, configSettings(catalog), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringVarP(&serveSession, "session", "s", "", "Session file to start from")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "Run without run history or saved settings")
	serveCmd.Flags().String("store", "", "Settings backend: sqlite or redis (default from config)")
	serveCmd.Flags().String("db", "", "SQLite database path (default from config)")
	serveCmd.Flags().String("api-key", "", "Provider API key")
	serveCmd.Flags().String("model", "", "Initial model")
}
