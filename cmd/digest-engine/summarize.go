// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/summarize"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Write Markdown digests of the selected papers",
	Long: `Summarize reads papers_to_summarize.csv, extracts the text of each
downloaded PDF, and asks the Claude API for a Markdown digest, written next
to the PDF. Papers that already have a digest are skipped, so an
interrupted run can be resumed.`,
	RunE: runSummarize,
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := newSummarizeBackend(cfg)
	if err != nil {
		return err
	}

	summary, err := summarize.SummarizeAll(context.Background(), backend, cfg.Summarize, cfg.Select.OutputDir, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) failed to summarize", summary.Failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}
