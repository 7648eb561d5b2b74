// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vault

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/digest-engine/internal/selection"
	"github.com/pdiddy/digest-engine/pkg/types"
)

func selectedPaper(id, title, filename string) types.SelectedPaper {
	return types.SelectedPaper{
		Paper: types.Paper{
			ID:          id,
			Title:       title,
			ArxivURL:    "https://arxiv.org/abs/" + id,
			PublishedAt: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		},
		Score:    0.9,
		Query:    "agents",
		Filename: filename,
	}
}

// setupRun builds a work dir with report, PDFs, and digests, plus an empty
// vault config pointing at temp dirs.
func setupRun(t *testing.T, papers []types.SelectedPaper) (string, types.VaultConfig) {
	t.Helper()
	workDir := t.TempDir()
	if err := selection.WriteReport(filepath.Join(workDir, selection.ReportFile), papers); err != nil {
		t.Fatal(err)
	}
	for _, p := range papers {
		pdf := filepath.Join(workDir, p.Filename)
		if err := os.WriteFile(pdf, []byte("%PDF"), 0o644); err != nil {
			t.Fatal(err)
		}
		digest := filepath.Join(workDir, strings.TrimSuffix(p.Filename, ".pdf")+".md")
		if err := os.WriteFile(digest, []byte("# digest\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	vaultRoot := t.TempDir()
	cfg := types.VaultConfig{
		Enabled:        true,
		NotesDir:       filepath.Join(vaultRoot, "notes"),
		AttachmentsDir: filepath.Join(vaultRoot, "attachments"),
	}
	return workDir, cfg
}

func TestArchiveMovesPapersIntoVault(t *testing.T) {
	papers := []types.SelectedPaper{
		selectedPaper("2401.00001", "Paper One", "2024-01-12-Paper_One.pdf"),
	}
	workDir, cfg := setupRun(t, papers)

	var buf bytes.Buffer
	s, err := Archive(cfg, workDir, &buf)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if s.Archived != 1 || s.Failed != 0 {
		t.Errorf("summary = %+v, want 1 archived", s)
	}

	// PDF moved to attachments.
	if _, err := os.Stat(filepath.Join(cfg.AttachmentsDir, "2024-01-12-Paper_One.pdf")); err != nil {
		t.Errorf("PDF not in attachments: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "2024-01-12-Paper_One.pdf")); !os.IsNotExist(err) {
		t.Error("PDF still in work dir")
	}

	// Digest moved to notes.
	if _, err := os.Stat(filepath.Join(cfg.NotesDir, "2024-01-12-Paper_One.md")); err != nil {
		t.Errorf("digest not in notes: %v", err)
	}

	// Companion note written with link and embed.
	note, err := os.ReadFile(filepath.Join(cfg.NotesDir, "Paper One (pdf).md"))
	if err != nil {
		t.Fatalf("companion note not written: %v", err)
	}
	for _, want := range []string{
		"[arXiv](https://arxiv.org/abs/2401.00001)",
		"![[2024-01-12-Paper_One.pdf]]",
	} {
		if !strings.Contains(string(note), want) {
			t.Errorf("note missing %q:\n%s", want, note)
		}
	}
}

func TestArchiveSkipsExistingNotes(t *testing.T) {
	papers := []types.SelectedPaper{
		selectedPaper("2401.00001", "Paper One", "2024-01-12-Paper_One.pdf"),
	}
	workDir, cfg := setupRun(t, papers)

	if err := os.MkdirAll(cfg.NotesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	existing := filepath.Join(cfg.NotesDir, "Paper One (pdf).md")
	if err := os.WriteFile(existing, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	s, err := Archive(cfg, workDir, &buf)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if s.Skipped != 1 || s.Archived != 0 {
		t.Errorf("summary = %+v, want 1 skipped", s)
	}
	if !strings.Contains(buf.String(), "skipped 2401.00001") {
		t.Errorf("missing skip log line:\n%s", buf.String())
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "original" {
		t.Error("existing note was overwritten")
	}
}

func TestArchiveCountsMissingPDFs(t *testing.T) {
	papers := []types.SelectedPaper{
		selectedPaper("2401.00001", "Paper One", "2024-01-12-Paper_One.pdf"),
	}
	workDir, cfg := setupRun(t, papers)
	if err := os.Remove(filepath.Join(workDir, "2024-01-12-Paper_One.pdf")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	s, err := Archive(cfg, workDir, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if s.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failed", s)
	}
}

func TestCleanPreservesReportAndCheckpoint(t *testing.T) {
	selectDir := t.TempDir()
	ingestDir := t.TempDir()

	files := map[string]string{
		filepath.Join(selectDir, selection.ReportFile):            "report",
		filepath.Join(selectDir, "2024-01-12-Paper.pdf"):          "pdf",
		filepath.Join(selectDir, "2024-01-12-Paper.md"):           "digest",
		filepath.Join(ingestDir, "most_recent_day_searched.txt"):  "2024-01-15",
		filepath.Join(ingestDir, "papers_found.csv"):              "found",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := Clean(selectDir, ingestDir, "most_recent_day_searched.txt", true, &buf); err != nil {
		t.Fatalf("Clean: %v", err)
	}

	for _, kept := range []string{
		filepath.Join(selectDir, selection.ReportFile),
		filepath.Join(ingestDir, "most_recent_day_searched.txt"),
	} {
		if _, err := os.Stat(kept); err != nil {
			t.Errorf("%s should survive cleanup: %v", kept, err)
		}
	}
	for _, gone := range []string{
		filepath.Join(selectDir, "2024-01-12-Paper.pdf"),
		filepath.Join(selectDir, "2024-01-12-Paper.md"),
		filepath.Join(ingestDir, "papers_found.csv"),
	} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", gone)
		}
	}
}

// A run without a vault has no archive step, so the digests and PDFs in the
// selection directory are the only copy. Clean must leave them alone and
// clear only the ingest work directory.
func TestCleanWithoutArchiveKeepsSelectionOutput(t *testing.T) {
	selectDir := t.TempDir()
	ingestDir := t.TempDir()

	files := map[string]string{
		filepath.Join(selectDir, selection.ReportFile):           "report",
		filepath.Join(selectDir, "2024-01-10-Some_Paper.pdf"):    "pdf",
		filepath.Join(selectDir, "2024-01-10-Some_Paper.md"):     "digest",
		filepath.Join(ingestDir, "most_recent_day_searched.txt"): "2024-01-15",
		filepath.Join(ingestDir, "papers_found.csv"):             "found",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := Clean(selectDir, ingestDir, "most_recent_day_searched.txt", false, &buf); err != nil {
		t.Fatalf("Clean: %v", err)
	}

	for _, kept := range []string{
		filepath.Join(selectDir, selection.ReportFile),
		filepath.Join(selectDir, "2024-01-10-Some_Paper.pdf"),
		filepath.Join(selectDir, "2024-01-10-Some_Paper.md"),
		filepath.Join(ingestDir, "most_recent_day_searched.txt"),
	} {
		if _, err := os.Stat(kept); err != nil {
			t.Errorf("%s should survive cleanup: %v", kept, err)
		}
	}
	if _, err := os.Stat(filepath.Join(ingestDir, "papers_found.csv")); !os.IsNotExist(err) {
		t.Error("papers_found.csv should be removed")
	}
}

func TestCleanMissingDirsIsNoError(t *testing.T) {
	var buf bytes.Buffer
	err := Clean(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "also-nope"), "x", true, &buf)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
}

func TestNoteFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Paper One", "Paper One (pdf).md"},
		{"A/B Testing", "A-B Testing (pdf).md"},
		{"  trimmed  ", "trimmed (pdf).md"},
	}
	for _, tt := range tests {
		if got := noteFilename(tt.in); got != tt.want {
			t.Errorf("noteFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
