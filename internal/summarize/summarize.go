// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize produces Markdown digests of the selected papers.
// See docs/ARCHITECTURE.md § Summarization.
package summarize

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/digest-engine/internal/selection"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// AIBackend abstracts the Generative AI API so tests can supply a mock.
type AIBackend interface {
	// Summarize returns a Markdown digest of one paper.
	Summarize(ctx context.Context, paper types.SelectedPaper, fullText string) (string, error)
}

// extractText is swapped out in tests that exercise the batch loop without
// real PDF fixtures.
var extractText = ExtractText

// BatchSummary holds counts from a batch summarization run.
type BatchSummary struct {
	Summarized int
	Skipped    int
	Failed     int
}

// Total returns the number of papers processed.
func (s BatchSummary) Total() int {
	return s.Summarized + s.Skipped + s.Failed
}

// HasFailures reports whether any papers failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// SummarizeAll reads papers_to_summarize.csv, extracts each downloaded
// PDF's text, and writes a {filename}.md digest next to the PDF. Papers
// that already have a digest are skipped, so an interrupted run resumes
// where it stopped. Per-paper failures are isolated and counted.
func SummarizeAll(ctx context.Context, backend AIBackend, cfg types.SummarizeConfig, workDir string, w io.Writer) (BatchSummary, error) {
	papers, err := selection.ReadReport(filepath.Join(workDir, selection.ReportFile))
	if err != nil {
		return BatchSummary{}, err
	}

	var summary BatchSummary
	for _, p := range papers {
		outPath := filepath.Join(workDir, summaryFilename(p.Filename))

		if _, err := os.Stat(outPath); err == nil {
			fmt.Fprintf(w, "skipped %s (summary exists)\n", p.ID)
			summary.Skipped++
			continue
		}

		fmt.Fprintf(w, "summarizing %s\n", p.ID)

		text, err := extractText(filepath.Join(workDir, p.Filename), cfg.MaxChars)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", p.ID, err)
			summary.Failed++
			continue
		}

		digest, err := backend.Summarize(ctx, p, text)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", p.ID, err)
			summary.Failed++
			continue
		}

		if err := os.WriteFile(outPath, []byte(digest), 0o644); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", p.ID, err)
			summary.Failed++
			continue
		}
		summary.Summarized++
	}

	fmt.Fprintf(w, "\nSummarize summary: %d summarized, %d skipped, %d failed (total: %d)\n",
		summary.Summarized, summary.Skipped, summary.Failed, summary.Total())
	return summary, nil
}

// summaryFilename maps a PDF filename to its digest filename.
func summaryFilename(pdfName string) string {
	return strings.TrimSuffix(pdfName, ".pdf") + ".md"
}
