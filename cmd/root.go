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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/valpere/dichai/internal/config"
	"github.com/valpere/dichai/internal/logging"
)

var version = "0.1.0"

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// flagKeys maps config keys to the flag names that override them. A command
// binds only the flags it defines.
var flagKeys = map[string]string{
	"provider":      "provider",
	"model":         "model",
	"api_key":       "api-key",
	"store.backend": "store",
	"store.path":    "db",
	"ocr_url":       "ocr-url",
	"listen":        "listen",
	"verbose":       "verbose",
}

var rootCmd = &cobra.Command{
	Use:   "dichai",
	Short: "Context-aware Vietnamese translation assistant",
	Long: `A CLI application that translates tagged source lines into Vietnamese with an LLM,
following per-session character, relationship and pronoun rules.

A run makes two model calls: a translation pass and a refinement pass. Further
refinement passes can be requested on a finished result.

Supported providers: Gemini, OpenAI, X.AI, OpenRouter

Use "dichai session init" to create a session file and "dichai translate --help"
for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		for key, name := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}

		path, required := configPath, true
		if path == "" {
			path, required = config.DefaultPath(), false
		}
		var err error
		cfg, err = config.Load(v, path, required)
		if err != nil {
			return err
		}

		logger, err = logging.New(cfg.Verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.config/dichai/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
