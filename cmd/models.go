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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/dichai/internal/persistence"
	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

var (
	modelsProvider string
	modelsSession  string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models and manage custom OpenRouter models",
	Long: `List the built-in models of every provider, plus the custom OpenRouter models
stored in a session file when --file is given.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available models",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := provider.NewCatalog()
		selected := configSettings(catalog).Selection
		if modelsSession != "" {
			_, settings, err := loadSession(modelsSession, catalog)
			if err != nil {
				return err
			}
			selected = settings.WithSelection(selected).Selection
		}

		models := catalog.Models()
		if modelsProvider != "" {
			models = catalog.ModelsFor(modelsProvider)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tPROVIDER\tMODEL\tNAME\tDESCRIPTION")
		for _, m := range models {
			mark := ""
			if m.ID == selected.Model {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, m.Provider, m.ID, m.Name, m.Description)
		}
		return w.Flush()
	},
}

var modelsAddCmd = &cobra.Command{
	Use:   "add <model-id>",
	Short: "Add a custom OpenRouter model to a session file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelsSession == "" {
			return fmt.Errorf("--file is required to store a custom model")
		}
		return editSession(modelsSession, func(_ *session.Session, catalog *provider.Catalog, _ *persistence.Settings) error {
			m, err := catalog.AddCustomModel(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Added OpenRouter model %s\n", m.ID)
			return nil
		})
	},
}

var modelsUseCmd = &cobra.Command{
	Use:   "use <model-id|provider>",
	Short: "Select the model, or switch provider, stored in a session file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelsSession == "" {
			return fmt.Errorf("--file is required to store a selection")
		}
		return editSession(modelsSession, func(_ *session.Session, catalog *provider.Catalog, settings *persistence.Settings) error {
			sel, err := catalog.Select(args[0])
			if err != nil {
				current := settings.WithSelection(configSettings(catalog).Selection).Selection
				sel, err = catalog.SwitchProvider(current, args[0])
				if err != nil {
					return fmt.Errorf("%s is neither a known model nor a provider", args[0])
				}
			}
			settings.Selection = sel
			fmt.Printf("Selected %s (%s)\n", sel.Model, sel.Provider)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.PersistentFlags().StringVarP(&modelsSession, "file", "f", "", "Session file holding custom models")
	modelsListCmd.Flags().StringVarP(&modelsProvider, "provider", "p", "", "Only list models of this provider")

	modelsCmd.AddCommand(modelsListCmd, modelsAddCmd, modelsUseCmd)
}
