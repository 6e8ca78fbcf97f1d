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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/dichai/internal/detector"
	"github.com/valpere/dichai/internal/orchestrator"
	"github.com/valpere/dichai/internal/persistence"
	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

var (
	sessionFile string
	outputFile  string
	passes      int
	noHistory   bool
	showDraft   bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a session's text lines into Vietnamese",
	Long: `Translate the text lines of a session file into Vietnamese.

The run makes two model calls: a translation pass using the session's characters,
relationships and pronoun rules, then a refinement pass over the draft.
--passes N requests N further refinement passes on the result.

The model and api key come from --model/--api-key, then the session file, then config.
Every stage is recorded in the run history database unless --no-history is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFile != "" && outputFile == sessionFile {
			return fmt.Errorf("session file and output file cannot be the same")
		}
		if passes < 0 {
			return fmt.Errorf("--passes must not be negative")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		catalog := provider.NewCatalog()
		s, settings, err := loadSession(sessionFile, catalog)
		if err != nil {
			return err
		}

		model := runModel(cmd.Flags().Changed("model"), settings)
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = settings.APIKey
		}

		det := detector.New()
		if lang, ok := det.DetectISO(s.SourceText()); ok {
			logger.Info("Detected source language", zap.String("language", lang))
		}

		var rec orchestrator.Recorder
		if !noHistory {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			rec = db
		}

		orch := buildOrchestrator(buildAdapter(catalog, nil), rec, nil, det)

		out, err := orch.Start(ctx, s, apiKey, model)
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}
		if showDraft {
			fmt.Fprintf(os.Stderr, "--- draft ---\n%s\n--- refined ---\n", out.Draft)
		}
		for i := 0; i < passes; i++ {
			out, err = orch.RefineAgain(ctx, s, apiKey, model)
			if err != nil {
				return fmt.Errorf("refinement pass %d failed: %w", i+1, err)
			}
		}
		if out.Status != session.StatusDone {
			return fmt.Errorf("run ended in state %s", out.Status)
		}

		if err := writeOutput(outputFile, out.Refined); err != nil {
			return err
		}
		if outputFile != "" && outputFile != "-" {
			fmt.Printf("Successfully translated %d lines with %s\n", len(s.Lines()), model)
			if out.RefinementCount > 0 {
				fmt.Printf("Additional refinement passes: %d\n", out.RefinementCount)
			}
		}
		return nil
	},
}

// runModel picks the model for a run: --model, then the session file's
// selection, then config.
func runModel(flagSet bool, settings persistence.Settings) string {
	if flagSet || settings.Selection.Model == "" {
		return cfg.Model
	}
	return settings.Selection.Model
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&sessionFile, "session", "s", "", "Session file to translate (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for the refined translation (default stdout)")
	translateCmd.Flags().IntVar(&passes, "passes", 0, "Additional refinement passes after the first refinement")
	translateCmd.Flags().String("model", "", "Model id (overrides the session file)")
	translateCmd.Flags().String("api-key", "", "Provider API key")
	translateCmd.Flags().String("db", "./data/dichai.db", "Database path for run history")
	translateCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the run")
	translateCmd.Flags().BoolVar(&showDraft, "show-draft", false, "Print the draft translation to stderr")

	translateCmd.MarkFlagRequired("session")
}
