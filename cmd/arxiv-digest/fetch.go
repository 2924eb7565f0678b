// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-digest/internal/digest"
	"github.com/pdiddy/arxiv-digest/internal/papers"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and cache today's listing without filtering or scoring",
	Long: `Fetch loads today's listing for a topic, from the cache when it exists
and from arXiv otherwise, and prints every record as parsed. Use it to
inspect what the digest pipeline starts from.`,
	RunE: runFetch,
}

func init() {
	addSelectionFlags(fetchCmd)
	fetchCmd.Flags().Bool("yaml", false, "print records as YAML")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	asYAML, _ := cmd.Flags().GetBool("yaml")

	topic, err := papers.ResolveTopic(cfg.Topic)
	if err != nil {
		return err
	}

	// Fetching needs no judge.
	cfg.Interest = ""
	runner, err := newRunner(cfg, loadedSecrets, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	kind := types.WindowKindFor(cfg.LookbackDays)
	records, err := runner.Listing(ctx, topic.Code, kind)
	if err != nil {
		return err
	}

	if asYAML {
		return writeYAML(os.Stdout, records)
	}

	if err := digest.WriteTable(os.Stdout, records); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d records in the %s listing for %s (%s)\n", len(records), kind, topic.Name, topic.Code)
	return nil
}
