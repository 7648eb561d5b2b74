// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/podcast"
)

var podcastCmd = &cobra.Command{
	Use:   "podcast",
	Short: "Synthesize an audio digest of the run's summaries",
	Long: `Podcast concatenates the Markdown digests produced by summarize into a
spoken script and synthesizes it to digest-{date}.mp3 via the OpenAI
speech API.`,
	RunE: runPodcast,
}

func runPodcast(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	speech, err := newSpeechBackend(cfg)
	if err != nil {
		return err
	}

	outPath, err := podcast.Generate(context.Background(), speech, cfg.Podcast, cfg.Select.OutputDir, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Println(outPath)
	return nil
}

func init() {
	rootCmd.AddCommand(podcastCmd)
}
