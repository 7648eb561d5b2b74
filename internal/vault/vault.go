// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vault archives a finished run into an Obsidian-style vault and
// clears the work directories for the next cycle.
// See docs/ARCHITECTURE.md § Vault.
package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/digest-engine/internal/selection"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// Summary holds counts from an archival run.
type Summary struct {
	Archived int
	Skipped  int
	Failed   int
}

// HasFailures reports whether any papers failed to archive.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Archive moves each selected paper into the vault: the PDF goes to the
// attachments directory, the digest and a companion note go to the notes
// directory. The companion note carries the arXiv link and an embed
// reference so the PDF renders inline in the vault. A destination that
// already exists is logged and skipped, never overwritten.
func Archive(cfg types.VaultConfig, workDir string, w io.Writer) (Summary, error) {
	var s Summary

	papers, err := selection.ReadReport(filepath.Join(workDir, selection.ReportFile))
	if err != nil {
		return s, err
	}

	for _, dir := range []string{cfg.NotesDir, cfg.AttachmentsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return s, fmt.Errorf("creating vault directory %s: %w", dir, err)
		}
	}

	for _, p := range papers {
		if err := archivePaper(cfg, workDir, p, w); err != nil {
			if os.IsExist(err) {
				s.Skipped++
				fmt.Fprintf(w, "skipped %s (already in vault)\n", p.ID)
				continue
			}
			s.Failed++
			fmt.Fprintf(w, "failed  %s: %v\n", p.ID, err)
			continue
		}
		s.Archived++
		fmt.Fprintf(w, "archived %s\n", p.ID)
	}

	fmt.Fprintf(w, "\nVault summary: %d archived, %d skipped, %d failed\n",
		s.Archived, s.Skipped, s.Failed)
	return s, nil
}

func archivePaper(cfg types.VaultConfig, workDir string, p types.SelectedPaper, w io.Writer) error {
	pdfSrc := filepath.Join(workDir, p.Filename)
	if _, err := os.Stat(pdfSrc); err != nil {
		return fmt.Errorf("missing PDF: %w", err)
	}

	notePath := filepath.Join(cfg.NotesDir, noteFilename(p.Title))
	if _, err := os.Stat(notePath); err == nil {
		return os.ErrExist
	}
	if err := os.WriteFile(notePath, []byte(companionNote(p)), 0o644); err != nil {
		return fmt.Errorf("writing companion note: %w", err)
	}

	// The digest may be absent when the summarize stage was skipped.
	digestSrc := filepath.Join(workDir, strings.TrimSuffix(p.Filename, ".pdf")+".md")
	if _, err := os.Stat(digestSrc); err == nil {
		if err := moveFile(digestSrc, filepath.Join(cfg.NotesDir, filepath.Base(digestSrc))); err != nil {
			return fmt.Errorf("moving digest: %w", err)
		}
	}

	if err := moveFile(pdfSrc, filepath.Join(cfg.AttachmentsDir, p.Filename)); err != nil {
		return fmt.Errorf("moving PDF: %w", err)
	}
	return nil
}

// companionNote renders the vault note that links and embeds the PDF.
func companionNote(p types.SelectedPaper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	fmt.Fprintf(&b, "[arXiv](%s)\n\n", p.ArxivURL)
	fmt.Fprintf(&b, "Selected by query %q on %s (score %.3f).\n\n",
		p.Query, p.PublishedAt.Format("2006-01-02"), p.Score)
	fmt.Fprintf(&b, "![[%s]]\n", p.Filename)
	return b.String()
}

// noteFilename builds the companion note name: "{Title} (pdf).md" with
// path separators stripped.
func noteFilename(title string) string {
	title = strings.TrimSpace(title)
	title = strings.ReplaceAll(title, "/", "-")
	title = strings.ReplaceAll(title, string(os.PathSeparator), "-")
	return title + " (pdf).md"
}

// moveFile renames src to dest, falling back to copy+remove when the vault
// lives on a different filesystem. An existing destination is an error.
func moveFile(src, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return os.ErrExist
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return err
	}
	return os.Remove(src)
}

// Clean clears the work directories for the next run. The selection report
// and the checkpoint file survive: the report records what was chosen, the
// checkpoint keeps ingestion incremental. archived says whether Archive ran
// this cycle; when it did not, the selection directory is left untouched,
// because the digests and PDFs there are the run's only copy.
func Clean(selectDir, ingestDir, checkpointFile string, archived bool, w io.Writer) error {
	if archived {
		keepSelect := map[string]bool{selection.ReportFile: true}
		if err := cleanDir(selectDir, keepSelect, w); err != nil {
			return err
		}
	}

	keepIngest := map[string]bool{checkpointFile: true}
	return cleanDir(ingestDir, keepIngest, w)
}

func cleanDir(dir string, keep map[string]bool, w io.Writer) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	for _, entry := range entries {
		if keep[entry.Name()] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
		fmt.Fprintf(w, "removed %s\n", path)
	}
	return nil
}
