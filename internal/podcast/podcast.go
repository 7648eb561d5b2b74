// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package podcast turns the run's paper digests into a single audio file.
// See docs/ARCHITECTURE.md § Podcast.
package podcast

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/digest-engine/internal/selection"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// Speech abstracts the text-to-speech API so tests can supply a mock.
type Speech interface {
	// Synthesize returns encoded audio for the given script.
	Synthesize(ctx context.Context, script string) ([]byte, error)
}

// Generate reads the digests produced by the summarize stage, builds a
// spoken script, and writes digest-{date}.mp3 to cfg.OutputDir. Papers
// without a digest on disk are skipped with a log line; a run with no
// digests at all is an error.
func Generate(ctx context.Context, speech Speech, cfg types.PodcastConfig, workDir string, w io.Writer) (string, error) {
	papers, err := selection.ReadReport(filepath.Join(workDir, selection.ReportFile))
	if err != nil {
		return "", err
	}

	script, included := buildScript(papers, workDir, w)
	if included == 0 {
		return "", fmt.Errorf("no digests found in %s", workDir)
	}
	fmt.Fprintf(w, "synthesizing %d segments\n", included)

	audio, err := speech.Synthesize(ctx, script)
	if err != nil {
		return "", fmt.Errorf("synthesizing audio: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	outPath := filepath.Join(cfg.OutputDir, audioFilename(time.Now()))
	if err := os.WriteFile(outPath, audio, 0o644); err != nil {
		return "", fmt.Errorf("writing audio file: %w", err)
	}

	fmt.Fprintf(w, "wrote %s (%d bytes)\n", outPath, len(audio))
	return outPath, nil
}

// buildScript concatenates per-paper segments: an intro line per paper
// followed by its digest text.
func buildScript(papers []types.SelectedPaper, workDir string, w io.Writer) (string, int) {
	var b strings.Builder
	included := 0

	b.WriteString("Here is your research digest.\n\n")
	for _, p := range papers {
		mdPath := filepath.Join(workDir, strings.TrimSuffix(p.Filename, ".pdf")+".md")
		data, err := os.ReadFile(mdPath)
		if err != nil {
			fmt.Fprintf(w, "skipped %s (no digest)\n", p.ID)
			continue
		}
		included++
		fmt.Fprintf(&b, "Next paper: %s.\n%s\n\n", p.Title, strings.TrimSpace(string(data)))
	}
	b.WriteString("That concludes today's digest.\n")
	return b.String(), included
}

// audioFilename builds "digest-{date}.mp3" for the given day.
func audioFilename(t time.Time) string {
	return "digest-" + t.UTC().Format("2006-01-02") + ".mp3"
}
