// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Rank indexed papers against your queries and download PDFs",
	Long: `Select runs each named query from queries.yaml against the paper index
using hybrid lexical+vector ranking, downloads the PDFs of the top matches,
and writes papers_to_summarize.csv for the summarize stage.`,
	RunE: runSelect,
}

func runSelect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ix, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer ix.Close()

	engine, err := newSelectionEngine(cfg, ix)
	if err != nil {
		return err
	}

	summary, err := engine.Run(context.Background(), cfg.Select, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d PDF download(s) failed", summary.Failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(selectCmd)
}
