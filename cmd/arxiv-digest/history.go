// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-digest/internal/digest"
	"github.com/pdiddy/arxiv-digest/internal/history"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent digest runs or the papers of one run",
	Long: `History lists recent runs recorded in data_dir/history.db, newest first.
Pass a run id to print the papers that run delivered.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of runs to list")
	historyCmd.Flags().Bool("yaml", false, "print as YAML")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asYAML, _ := cmd.Flags().GetBool("yaml")

	store, err := history.Open(viper.GetString("data_dir"))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if len(args) == 1 {
		picks, err := store.Picks(ctx, args[0])
		if err != nil {
			return err
		}
		if asYAML {
			return writeYAML(os.Stdout, picks)
		}
		return digest.WriteTable(os.Stdout, picks)
	}

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if asYAML {
		return writeYAML(os.Stdout, runs)
	}
	return writeRuns(os.Stdout, runs)
}

func writeRuns(w io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded yet.")
		return err
	}
	loc := types.ReferenceLocation()
	rows := make([][]string, len(runs))
	for i, r := range runs {
		mailed := ""
		if r.Mailed {
			mailed = "yes"
		}
		rows[i] = []string{
			r.ID,
			r.StartedAt.In(loc).Format("2006-01-02 15:04"),
			r.Topic,
			r.Window,
			strconv.Itoa(r.Candidates),
			strconv.Itoa(r.Kept),
			strconv.Itoa(r.FailedBatches),
			mailed,
		}
	}
	return digest.WriteGrid(w,
		[]string{"Run", "Started", "Topic", "Window", "Candidates", "Kept", "Failed", "Mailed"},
		rows, 5, 6, 7)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}
