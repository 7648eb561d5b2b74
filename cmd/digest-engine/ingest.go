// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch new papers from arXiv into the index",
	Long: `Ingest fetches papers submitted since the last run (tracked by a
checkpoint file), embeds their titles and abstracts, and inserts them into
the paper index. Newly indexed papers are listed in papers_found.csv; the
run command uses that file to decide whether later stages should run.`,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ix, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer ix.Close()

	coord, err := newIngestCoordinator(cfg, ix)
	if err != nil {
		return err
	}

	summary, err := coord.Run(context.Background(), cfg.Ingest, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) failed to index", summary.Failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
