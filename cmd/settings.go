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

	"github.com/spf13/cobra"

	"github.com/valpere/dichai/internal/keyaudit"
	"github.com/valpere/dichai/internal/persistence"
	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

var settingsSession string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Save, load and clear the stored session settings",
	Long: `Store a session file in the settings store (SQLite or Redis, per store.backend),
restore it into a session file, or clear it.

Saving also stores the api key on its own so it survives a settings reset.`,
}

var settingsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a session file to the settings store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		catalog := provider.NewCatalog()
		s, settings, err := loadSession(settingsSession, catalog)
		if err != nil {
			return err
		}
		if cfg.APIKey != "" {
			settings.APIKey = cfg.APIKey
		}
		settings = settings.WithSelection(configSettings(catalog).Selection)

		kv, closeKV, err := openKV(ctx)
		if err != nil {
			return err
		}
		defer closeKV()

		if err := persistence.SaveSettings(ctx, kv, s, catalog, settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		keyaudit.New(cfg.KeyAuditURL, logger).Report(ctx, settings.APIKey, settings.Selection.Provider, settings.Selection.Model)

		fmt.Printf("Saved settings from %s (%s)\n", settingsSession, cfg.Store.Backend)
		return nil
	},
}

var settingsLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Write the stored settings to a session file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		kv, closeKV, err := openKV(ctx)
		if err != nil {
			return err
		}
		defer closeKV()

		catalog := provider.NewCatalog()
		s := session.New()
		settings, warnings, found, err := persistence.LoadSettings(ctx, kv, s, catalog)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		if !found {
			return fmt.Errorf("no saved settings in %s store", cfg.Store.Backend)
		}
		for _, w := range warnings {
			fmt.Printf("warning: %s\n", w)
		}
		if err := saveSession(settingsSession, s, catalog, settings); err != nil {
			return err
		}
		fmt.Printf("Loaded settings into %s\n", settingsSession)
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored settings and api key",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		kv, closeKV, err := openKV(ctx)
		if err != nil {
			return err
		}
		defer closeKV()

		if err := persistence.ClearSettings(ctx, kv); err != nil {
			return fmt.Errorf("failed to clear settings: %w", err)
		}
		fmt.Println("Cleared saved settings.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)

	settingsCmd.PersistentFlags().StringVarP(&settingsSession, "file", "f", "session.json", "Session file")
	settingsCmd.PersistentFlags().String("store", "", "Settings backend: sqlite or redis (default from config)")
	settingsCmd.PersistentFlags().String("db", "", "SQLite database path (default from config)")
	settingsCmd.PersistentFlags().String("api-key", "", "API key to store with the settings")

	settingsCmd.AddCommand(settingsSaveCmd, settingsLoadCmd, settingsClearCmd)
}
