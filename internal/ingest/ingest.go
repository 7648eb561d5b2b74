// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest coordinates one incremental fetch cycle: pull recent
// papers from the source, filter them to the active date window, embed and
// index the new ones, and advance the checkpoint. See docs/ARCHITECTURE.md
// § Ingestion.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/digest-engine/internal/arxiv"
	"github.com/pdiddy/digest-engine/internal/checkpoint"
	"github.com/pdiddy/digest-engine/internal/embed"
	"github.com/pdiddy/digest-engine/internal/index"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// ReportFile is the per-run report of newly indexed papers. The pipeline
// runner inspects it to decide whether later stages have anything to do.
const ReportFile = "papers_found.csv"

var reportHeader = []string{"ID", "Title", "ArXiv URL", "PDF URL", "Published Date", "Abstract"}

const dateFmt = "2006-01-02"

// Source fetches date-bounded, category-filtered papers, newest first.
// Satisfied by *arxiv.Client.
type Source interface {
	Fetch(ctx context.Context, categories []string, from, to time.Time, maxResults int) ([]arxiv.RawResult, error)
}

// Summary holds the outcome of an ingest run.
type Summary struct {
	Fetched   int
	Dropped   int
	Inserted  int
	Duplicate int
	Failed    int
}

// HasFailures reports whether any papers failed to embed or index.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Coordinator wires the ingest dependencies together.
type Coordinator struct {
	Source     Source
	Embed      embed.Service
	Index      *index.Index
	Checkpoint *checkpoint.Store

	// Now is the clock; overridable in tests. time.Now when nil.
	Now func() time.Time
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Run executes one ingest cycle and writes papers_found.csv for the newly
// inserted papers. A fetch failure aborts before any index or checkpoint
// write; per-paper embed/index failures are isolated and counted. The
// checkpoint advances to the latest published date seen across inserted and
// duplicate papers, so a re-run never re-fetches days that are fully
// indexed.
func (c *Coordinator) Run(ctx context.Context, cfg types.IngestConfig, w io.Writer) (Summary, error) {
	var s Summary

	from := types.DateOnly(c.Checkpoint.Read()).AddDate(0, 0, -cfg.LookbackDays)
	to := types.DateOnly(c.now())

	fmt.Fprintf(w, "fetching %v window %s..%s\n",
		cfg.Categories, from.Format(dateFmt), to.Format(dateFmt))

	results, err := c.Source.Fetch(ctx, cfg.Categories, from, to, cfg.MaxResults)
	if err != nil {
		return s, fmt.Errorf("fetching papers: %w", err)
	}
	s.Fetched = len(results)

	var (
		newPapers []*types.Paper
		maxSeen   time.Time
	)

	for _, r := range results {
		day := types.DateOnly(r.PublishedAt)
		if day.Before(from) || day.After(to) {
			s.Dropped++
			fmt.Fprintf(w, "dropped: %s (published %s, window %s..%s)\n",
				r.ID, day.Format(dateFmt), from.Format(dateFmt), to.Format(dateFmt))
			continue
		}

		existing, err := c.Index.Get(ctx, r.ID)
		if err != nil {
			s.Failed++
			fmt.Fprintf(w, "failed:  %s (%v)\n", r.ID, err)
			continue
		}
		if existing != nil {
			s.Duplicate++
			if day.After(maxSeen) {
				maxSeen = day
			}
			fmt.Fprintf(w, "skipped: %s (already indexed)\n", r.ID)
			continue
		}

		vec, err := c.Embed.EmbedText(ctx, embed.BuildText(r.Title, r.Abstract))
		if err != nil {
			s.Failed++
			fmt.Fprintf(w, "failed:  %s (%v)\n", r.ID, err)
			continue
		}

		p := &types.Paper{
			ID:          r.ID,
			Title:       r.Title,
			Abstract:    r.Abstract,
			ArxivURL:    r.ArxivURL,
			PDFURL:      r.PDFURL,
			PublishedAt: day,
			Embedding:   vec,
		}

		inserted, err := c.Index.Upsert(ctx, p)
		if err != nil {
			s.Failed++
			fmt.Fprintf(w, "failed:  %s (%v)\n", r.ID, err)
			continue
		}

		if day.After(maxSeen) {
			maxSeen = day
		}
		if inserted {
			s.Inserted++
			newPapers = append(newPapers, p)
			fmt.Fprintf(w, "indexed: %s (%s)\n", r.ID, day.Format(dateFmt))
		} else {
			s.Duplicate++
			fmt.Fprintf(w, "skipped: %s (already indexed)\n", r.ID)
		}
	}

	if !maxSeen.IsZero() {
		if err := c.Checkpoint.Advance(maxSeen); err != nil {
			return s, fmt.Errorf("advancing checkpoint: %w", err)
		}
	}

	if err := writeReport(filepath.Join(cfg.OutputDir, ReportFile), newPapers); err != nil {
		return s, err
	}

	fmt.Fprintf(w, "\nIngest summary: %d indexed, %d duplicate, %d dropped, %d failed (fetched: %d)\n",
		s.Inserted, s.Duplicate, s.Dropped, s.Failed, s.Fetched)
	return s, nil
}

// writeReport writes papers_found.csv. A run with no new papers writes the
// header only, which downstream stages read as "nothing to do".
func writeReport(path string, papers []*types.Paper) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	for _, p := range papers {
		row := []string{p.ID, p.Title, p.ArxivURL, p.PDFURL, p.PublishedAt.Format(dateFmt), p.Abstract}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReportRowCount returns the number of data rows in a papers_found.csv.
// A missing file counts as zero rows.
func ReportRowCount(path string) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("reading report: %w", err)
	}
	if len(records) <= 1 {
		return 0, nil
	}
	return len(records) - 1, nil
}
