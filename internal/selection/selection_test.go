// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selection

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/digest-engine/internal/index"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// fakeEmbedder records calls and returns a fixed query vector.
type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	f.calls++
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) Model() string   { return "fake-model" }
func (f *fakeEmbedder) Dimensions() int { return 3 }

func openTestIndex(t *testing.T) *index.Index {
	t.Helper()
	ix, err := index.Open(filepath.Join(t.TempDir(), "papers.db"), 0.5, "fake-model")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

// seedIndex inserts papers whose PDF URLs point at the given server.
func seedIndex(t *testing.T, ix *index.Index, serverURL string, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for i, id := range ids {
		p := &types.Paper{
			ID:          id,
			Title:       "Transformer architectures " + id,
			Abstract:    "Attention mechanisms in sequence models.",
			ArxivURL:    "https://arxiv.org/abs/" + id,
			PDFURL:      serverURL + "/" + id,
			PublishedAt: time.Date(2024, 1, 10+i, 0, 0, 0, 0, time.UTC),
			Embedding:   []float32{1, 0, 0},
		}
		if _, err := ix.Upsert(ctx, p); err != nil {
			t.Fatalf("seeding %s: %v", id, err)
		}
	}
}

// pdfServer serves a tiny PDF body for every path except those in fail.
func pdfServer(t *testing.T, fail map[string]bool) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/")
		if fail[id] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "%PDF-1.4 fake body")
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeQueriesFile(t *testing.T, queries string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.yaml")
	if err := os.WriteFile(path, []byte(queries), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testEngine(ix *index.Index, ts *httptest.Server) *Engine {
	e := &Engine{Index: ix, Embed: &fakeEmbedder{}, UserAgent: "digest-engine-test"}
	if ts != nil {
		e.HTTP = ts.Client()
	}
	return e
}

func testConfig(t *testing.T, queriesPath string, perQuery int) types.SelectConfig {
	t.Helper()
	return types.SelectConfig{
		QueriesFile:    queriesPath,
		PapersPerQuery: perQuery,
		OutputDir:      t.TempDir(),
	}
}

func TestRunRefusesEmptyIndex(t *testing.T) {
	ix := openTestIndex(t)
	e := testEngine(ix, nil)
	queries := writeQueriesFile(t, "queries:\n  - name: ml\n    terms: [machine, learning]\n")

	var buf bytes.Buffer
	s, err := e.Run(context.Background(), testConfig(t, queries, 5), &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if s.Matched != 0 || s.Downloaded != 0 {
		t.Errorf("summary = %+v, want all zero", s)
	}
	if !strings.Contains(buf.String(), "cannot select from an empty collection") {
		t.Errorf("missing refusal message:\n%s", buf.String())
	}
	if e.Embed.(*fakeEmbedder).calls != 0 {
		t.Error("refusal must not issue a query embedding")
	}
}

func TestRunSelectsFewerThanCapWhenIndexIsSmall(t *testing.T) {
	ix := openTestIndex(t)
	ts := pdfServer(t, nil)
	seedIndex(t, ix, ts.URL, "2401.00001", "2401.00002", "2401.00003")
	e := testEngine(ix, ts)
	queries := writeQueriesFile(t, "queries:\n  - name: transformers\n    terms: [transformer, attention]\n")
	cfg := testConfig(t, queries, 5)

	var buf bytes.Buffer
	s, err := e.Run(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, buf.String())
	}

	if s.Downloaded != 3 {
		t.Errorf("downloaded = %d, want 3 (only 3 papers indexed)", s.Downloaded)
	}

	papers, err := ReadReport(filepath.Join(cfg.OutputDir, ReportFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 3 {
		t.Errorf("report rows = %d, want 3", len(papers))
	}
	for _, p := range papers {
		if p.Query != "transformers" {
			t.Errorf("row %s has query %q", p.ID, p.Query)
		}
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, p.Filename)); err != nil {
			t.Errorf("PDF %s not downloaded: %v", p.Filename, err)
		}
	}
}

func TestRunBoundsResultsPerQuery(t *testing.T) {
	ix := openTestIndex(t)
	ts := pdfServer(t, nil)
	ids := make([]string, 6)
	for i := range ids {
		ids[i] = fmt.Sprintf("2401.0000%d", i+1)
	}
	seedIndex(t, ix, ts.URL, ids...)
	e := testEngine(ix, ts)
	queries := writeQueriesFile(t,
		"queries:\n"+
			"  - name: a\n    terms: [transformer]\n"+
			"  - name: b\n    terms: [attention]\n")
	cfg := testConfig(t, queries, 2)

	var buf bytes.Buffer
	s, err := e.Run(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Two queries capped at two papers each; no cross-query dedup.
	if s.Matched != 4 {
		t.Errorf("matched = %d, want 4", s.Matched)
	}
	papers, err := ReadReport(filepath.Join(cfg.OutputDir, ReportFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 4 {
		t.Errorf("report rows = %d, want 4", len(papers))
	}
}

func TestRunSkipsFailedDownloads(t *testing.T) {
	ix := openTestIndex(t)
	ts := pdfServer(t, map[string]bool{"2401.00002": true})
	seedIndex(t, ix, ts.URL, "2401.00001", "2401.00002")
	e := testEngine(ix, ts)
	queries := writeQueriesFile(t, "queries:\n  - name: q\n    terms: [transformer]\n")
	cfg := testConfig(t, queries, 5)

	var buf bytes.Buffer
	s, err := e.Run(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if s.Downloaded != 1 || s.Failed != 1 {
		t.Errorf("summary = %+v, want 1 downloaded, 1 failed", s)
	}
	if !strings.Contains(buf.String(), "failed:  2401.00002") {
		t.Errorf("missing failure log line:\n%s", buf.String())
	}

	// The failed row must not appear in the report.
	papers, err := ReadReport(filepath.Join(cfg.OutputDir, ReportFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 1 || papers[0].ID != "2401.00001" {
		t.Errorf("report = %+v, want only 2401.00001", papers)
	}
}

func TestTitleSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Attention Is All You Need", "Attention_Is_All_You_Need"},
		{"Scaling Laws: A Study, Revisited", "Scaling_Laws_A_Study_Revisited"},
		{"  padded  ", "padded"},
		{"", "untitled"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		if got := titleSlug(tt.in); got != tt.want {
			t.Errorf("titleSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPDFFilename(t *testing.T) {
	p := types.Paper{
		Title:       "Attention Is All You Need",
		PublishedAt: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
	}
	want := "2024-01-12-Attention_Is_All_You_Need.pdf"
	if got := pdfFilename(p); got != want {
		t.Errorf("pdfFilename = %q, want %q", got, want)
	}
}

func TestLoadQueries(t *testing.T) {
	path := writeQueriesFile(t,
		"queries:\n"+
			"  - name: agents\n    terms: [llm, agents, planning]\n"+
			"  - name: retrieval\n    terms: [dense, retrieval]\n")

	queries, err := LoadQueries(path)
	if err != nil {
		t.Fatalf("LoadQueries: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("len = %d, want 2", len(queries))
	}
	if queries[0].Text() != "llm agents planning" {
		t.Errorf("Text() = %q", queries[0].Text())
	}
}

func TestLoadQueriesRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"no queries", "queries: []\n"},
		{"missing name", "queries:\n  - terms: [x]\n"},
		{"missing terms", "queries:\n  - name: q\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeQueriesFile(t, tt.content)
			if _, err := LoadQueries(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadReportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ReportFile)
	in := []types.SelectedPaper{{
		Paper: types.Paper{
			ID:          "2401.00001",
			Title:       "A Paper, With Commas",
			ArxivURL:    "https://arxiv.org/abs/2401.00001",
			PDFURL:      "https://arxiv.org/pdf/2401.00001",
			Abstract:    "Multi-line\nabstract.",
			PublishedAt: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		},
		Score:    0.875,
		Query:    "agents",
		Filename: "2024-01-12-A_Paper_With_Commas.pdf",
	}}

	if err := WriteReport(path, in); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out, err := ReadReport(path)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	if out[0].ID != in[0].ID || out[0].Title != in[0].Title ||
		out[0].Score != in[0].Score || out[0].Query != in[0].Query ||
		out[0].Filename != in[0].Filename {
		t.Errorf("round trip mismatch: %+v", out[0])
	}
}
