// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the digest stages and stops early when a run
// has nothing left to do. See docs/ARCHITECTURE.md § Pipeline.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/digest-engine/internal/ingest"
)

// Step is one named pipeline stage.
type Step struct {
	Name string
	Run  func(ctx context.Context, w io.Writer) error
}

// Gate decides after a step whether the pipeline continues. Returning
// false stops the run without error.
type Gate func(w io.Writer) (bool, error)

// PapersFoundGate stops the pipeline when the ingest report at path is
// missing or has no data rows: with nothing new indexed, the later stages
// have nothing to select or summarize.
func PapersFoundGate(path string) Gate {
	return func(w io.Writer) (bool, error) {
		n, err := ingest.ReportRowCount(path)
		if err != nil {
			return false, err
		}
		if n == 0 {
			fmt.Fprintln(w, "no new papers found; stopping")
			return false, nil
		}
		return true, nil
	}
}

// Run executes steps in order. A step error aborts the run; a gate
// registered for a step's name is consulted after that step succeeds.
func Run(ctx context.Context, steps []Step, gates map[string]Gate, w io.Writer) error {
	for _, step := range steps {
		fmt.Fprintf(w, "=== %s ===\n", step.Name)
		if err := step.Run(ctx, w); err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}

		if gate, ok := gates[step.Name]; ok {
			cont, err := gate(w)
			if err != nil {
				return fmt.Errorf("after step %s: %w", step.Name, err)
			}
			if !cont {
				return nil
			}
		}
	}
	return nil
}
