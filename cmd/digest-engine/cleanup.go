// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/vault"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Archive the run into the vault and clear the work directories",
	Long: `Cleanup moves the run's PDFs and digests into the configured vault
(notes and attachments directories) with a companion note per paper, then
clears the work directories. The selection report and the ingest
checkpoint survive. When no vault is configured, the PDFs and digests
stay in place and only the ingest work directory is cleared.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Vault.Enabled {
		summary, err := vault.Archive(cfg.Vault, cfg.Select.OutputDir, os.Stdout)
		if err != nil {
			return err
		}
		if summary.HasFailures() {
			return fmt.Errorf("%d paper(s) failed to archive", summary.Failed)
		}
	}

	return vault.Clean(cfg.Select.OutputDir, cfg.Ingest.OutputDir, cfg.Ingest.CheckpointFile, cfg.Vault.Enabled, os.Stdout)
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
