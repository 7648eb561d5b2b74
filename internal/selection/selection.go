// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package selection ranks indexed papers against the researcher's named
// queries and downloads the PDFs of the top matches.
// See docs/ARCHITECTURE.md § Selection.
package selection

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pdiddy/digest-engine/internal/embed"
	"github.com/pdiddy/digest-engine/internal/httputil"
	"github.com/pdiddy/digest-engine/internal/index"
	"github.com/pdiddy/digest-engine/pkg/types"
)

const dateFmt = "2006-01-02"

// slugMaxLen bounds the title portion of a PDF filename.
const slugMaxLen = 50

// Summary holds the outcome of a selection run.
type Summary struct {
	Queries    int
	Matched    int
	Downloaded int
	Failed     int
}

// HasFailures reports whether any PDF downloads failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Engine wires the selection dependencies together.
type Engine struct {
	Index *index.Index
	Embed embed.Service

	// HTTP downloads PDFs. http.DefaultClient when nil.
	HTTP *http.Client

	// UserAgent is sent with every download request.
	UserAgent string
}

func (e *Engine) client() *http.Client {
	if e.HTTP != nil {
		return e.HTTP
	}
	return http.DefaultClient
}

// Run executes one selection cycle: for each named query, embed the query
// text, rank the index with a hybrid lexical+vector query, and download the
// PDFs of the top matches. Results are concatenated across queries without
// cross-query deduplication, so a paper matching two interests appears
// twice in the report. An empty index refuses the run without issuing any
// query. A failed download logs and skips that row; the run continues.
func (e *Engine) Run(ctx context.Context, cfg types.SelectConfig, w io.Writer) (Summary, error) {
	var s Summary

	n, err := e.Index.Count(ctx)
	if err != nil {
		return s, fmt.Errorf("counting indexed papers: %w", err)
	}
	if n == 0 {
		fmt.Fprintln(w, "cannot select from an empty collection")
		return s, nil
	}

	queries, err := LoadQueries(cfg.QueriesFile)
	if err != nil {
		return s, err
	}
	s.Queries = len(queries)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return s, fmt.Errorf("creating output directory: %w", err)
	}

	var selected []types.SelectedPaper
	for _, q := range queries {
		text := q.Text()
		fmt.Fprintf(w, "query %q: %s\n", q.Name, text)

		qvec, err := e.Embed.EmbedText(ctx, text)
		if err != nil {
			return s, fmt.Errorf("embedding query %q: %w", q.Name, err)
		}

		matches, err := e.Index.HybridQuery(ctx, text, qvec, cfg.PapersPerQuery)
		if err != nil {
			return s, fmt.Errorf("ranking query %q: %w", q.Name, err)
		}
		s.Matched += len(matches)

		for _, m := range matches {
			filename := pdfFilename(m.Paper)
			dest := filepath.Join(cfg.OutputDir, filename)

			if err := e.downloadPDF(ctx, m.PDFURL, dest); err != nil {
				s.Failed++
				fmt.Fprintf(w, "failed:  %s (%v)\n", m.ID, err)
				continue
			}
			s.Downloaded++
			fmt.Fprintf(w, "downloaded: %s (score %.3f)\n", filename, m.Score)

			selected = append(selected, types.SelectedPaper{
				Paper:    m.Paper,
				Score:    m.Score,
				Query:    q.Name,
				Filename: filename,
			})
		}
	}

	if err := WriteReport(filepath.Join(cfg.OutputDir, ReportFile), selected); err != nil {
		return s, err
	}

	fmt.Fprintf(w, "\nSelection summary: %d queries, %d matched, %d downloaded, %d failed\n",
		s.Queries, s.Matched, s.Downloaded, s.Failed)
	return s, nil
}

// downloadPDF fetches url to dest via a temporary file, renaming on
// success so a partial download never looks complete. 429 responses go
// through DoWithRetry's backoff.
func (e *Engine) downloadPDF(ctx context.Context, url, dest string) error {
	if url == "" {
		return fmt.Errorf("no PDF URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, e.client(), req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".select-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// pdfFilename builds "{published-date}-{slug}.pdf" for a selected paper.
func pdfFilename(p types.Paper) string {
	return p.PublishedAt.Format(dateFmt) + "-" + titleSlug(p.Title) + ".pdf"
}

// titleSlug sanitizes a title for use in a filename: spaces become
// underscores, anything that is not a letter, digit, underscore, or hyphen
// is dropped, and the result is capped at slugMaxLen characters.
func titleSlug(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if runes := []rune(slug); len(runes) > slugMaxLen {
		slug = string(runes[:slugMaxLen])
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
