// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/ingest"
	"github.com/pdiddy/digest-engine/internal/pipeline"
	"github.com/pdiddy/digest-engine/internal/podcast"
	"github.com/pdiddy/digest-engine/internal/summarize"
	"github.com/pdiddy/digest-engine/internal/vault"
	"github.com/pdiddy/digest-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the configured pipeline stages in order",
	Long: `Run executes the stages named in pipeline.steps (default: ingest,
select, summarize, cleanup). When ingest finds no new papers the pipeline
stops early; there is nothing for the later stages to do.`,
	RunE: runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	steps, gates := buildSteps(cfg, os.Stderr)
	return pipeline.Run(context.Background(), steps, gates, os.Stdout)
}

// buildSteps maps the configured step names onto pipeline steps. Unknown
// names warn and are dropped; a disabled podcast stage likewise.
func buildSteps(cfg *types.Config, warnings io.Writer) ([]pipeline.Step, map[string]pipeline.Gate) {
	var steps []pipeline.Step
	for _, name := range cfg.Pipeline.Steps {
		step, ok := buildStep(cfg, name, warnings)
		if !ok {
			continue
		}
		steps = append(steps, step)
	}

	gates := map[string]pipeline.Gate{
		"ingest": pipeline.PapersFoundGate(filepath.Join(cfg.Ingest.OutputDir, ingest.ReportFile)),
	}
	return steps, gates
}

func buildStep(cfg *types.Config, name string, warnings io.Writer) (pipeline.Step, bool) {
	switch name {
	case "ingest":
		return pipeline.Step{Name: name, Run: func(ctx context.Context, w io.Writer) error {
			ix, err := openIndex(cfg)
			if err != nil {
				return err
			}
			defer ix.Close()

			coord, err := newIngestCoordinator(cfg, ix)
			if err != nil {
				return err
			}
			summary, err := coord.Run(ctx, cfg.Ingest, w)
			if err != nil {
				return err
			}
			if summary.HasFailures() {
				return fmt.Errorf("%d paper(s) failed to index", summary.Failed)
			}
			return nil
		}}, true

	case "select":
		return pipeline.Step{Name: name, Run: func(ctx context.Context, w io.Writer) error {
			ix, err := openIndex(cfg)
			if err != nil {
				return err
			}
			defer ix.Close()

			engine, err := newSelectionEngine(cfg, ix)
			if err != nil {
				return err
			}
			summary, err := engine.Run(ctx, cfg.Select, w)
			if err != nil {
				return err
			}
			if summary.HasFailures() {
				return fmt.Errorf("%d PDF download(s) failed", summary.Failed)
			}
			return nil
		}}, true

	case "summarize":
		return pipeline.Step{Name: name, Run: func(ctx context.Context, w io.Writer) error {
			backend, err := newSummarizeBackend(cfg)
			if err != nil {
				return err
			}
			summary, err := summarize.SummarizeAll(ctx, backend, cfg.Summarize, cfg.Select.OutputDir, w)
			if err != nil {
				return err
			}
			if summary.HasFailures() {
				return fmt.Errorf("%d paper(s) failed to summarize", summary.Failed)
			}
			return nil
		}}, true

	case "podcast":
		if !cfg.Podcast.Enabled {
			fmt.Fprintln(warnings, "warning: podcast step configured but podcast.enabled is false; skipping")
			return pipeline.Step{}, false
		}
		return pipeline.Step{Name: name, Run: func(ctx context.Context, w io.Writer) error {
			speech, err := newSpeechBackend(cfg)
			if err != nil {
				return err
			}
			_, err = podcast.Generate(ctx, speech, cfg.Podcast, cfg.Select.OutputDir, w)
			return err
		}}, true

	case "cleanup":
		return pipeline.Step{Name: name, Run: func(ctx context.Context, w io.Writer) error {
			if cfg.Vault.Enabled {
				summary, err := vault.Archive(cfg.Vault, cfg.Select.OutputDir, w)
				if err != nil {
					return err
				}
				if summary.HasFailures() {
					return fmt.Errorf("%d paper(s) failed to archive", summary.Failed)
				}
			}
			return vault.Clean(cfg.Select.OutputDir, cfg.Ingest.OutputDir, cfg.Ingest.CheckpointFile, cfg.Vault.Enabled, w)
		}}, true

	default:
		fmt.Fprintf(warnings, "warning: unknown pipeline step %q; skipping\n", name)
		return pipeline.Step{}, false
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
