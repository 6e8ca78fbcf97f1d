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
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/dichai/internal/store"
)

var (
	historyStatus string
	historyLimit  int
	historyFull   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the pipeline run history",
	Long:  `List, inspect, and clear the SQLite record of translation and refinement runs.`,
}

func snippet(text string, n int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	r := []rune(text)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return text
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), store.RunFilter{Status: historyStatus, Limit: historyLimit})
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tPROVIDER\tMODEL\tSTATUS\tSTARTED\tSOURCE")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Kind, r.Provider, r.Model, r.Status,
				r.StartedAt.Format("2006-01-02 15:04"), snippet(r.SourceText, 40))
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run and its stages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		run, stages, err := db.GetRun(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Run:      %s (%s)\n", run.ID, run.Kind)
		fmt.Printf("Model:    %s / %s\n", run.Provider, run.Model)
		fmt.Printf("Status:   %s\n", run.Status)
		fmt.Printf("Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
		if !run.FinishedAt.IsZero() {
			fmt.Printf("Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
		}
		if run.Error != "" {
			fmt.Printf("Error:    %s\n", run.Error)
		}

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tPROMPT\tLATENCY\tRESULT")
		for _, st := range stages {
			result := snippet(st.Output, 60)
			if st.Error != "" {
				result = "error: " + st.Error
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", st.Stage, st.PromptLen, st.Latency, result)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if historyFull && run.Refined != "" {
			fmt.Printf("\n%s\n", run.Refined)
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total runs:    %d\n", stats.TotalRuns)
		fmt.Printf("Done runs:     %d\n", stats.DoneRuns)
		fmt.Printf("Failed runs:   %d\n", stats.FailedRuns)
		fmt.Printf("Model calls:   %d\n", stats.TotalStages)
		fmt.Printf("Avg latency:   %.0fms\n", stats.AvgLatencyMs)
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteRun(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		fmt.Printf("Deleted run: %s\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every recorded run",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearHistory(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Printf("Cleared %d runs from history.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().String("db", "", "Database path (default from config)")
	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "Only runs with this status (done, failed)")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs (0 for all)")
	historyShowCmd.Flags().BoolVar(&historyFull, "full", false, "Print the refined text")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyStatsCmd, historyDeleteCmd, historyClearCmd)
}
