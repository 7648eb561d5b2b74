// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package podcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/digest-engine/internal/httputil"
	"github.com/pdiddy/digest-engine/internal/selection"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// fakeSpeech records the script and returns fixed bytes.
type fakeSpeech struct {
	script string
}

func (f *fakeSpeech) Synthesize(_ context.Context, script string) ([]byte, error) {
	f.script = script
	return []byte("mp3-bytes"), nil
}

func selectedPaper(id, title, filename string) types.SelectedPaper {
	return types.SelectedPaper{
		Paper: types.Paper{
			ID:          id,
			Title:       title,
			PublishedAt: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		},
		Query:    "agents",
		Filename: filename,
	}
}

func writeWorkDir(t *testing.T, papers []types.SelectedPaper, digests map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	if err := selection.WriteReport(filepath.Join(dir, selection.ReportFile), papers); err != nil {
		t.Fatal(err)
	}
	for name, content := range digests {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestGenerateWritesAudioFile(t *testing.T) {
	papers := []types.SelectedPaper{
		selectedPaper("2401.00001", "Paper One", "2024-01-12-Paper_One.pdf"),
		selectedPaper("2401.00002", "Paper Two", "2024-01-12-Paper_Two.pdf"),
	}
	dir := writeWorkDir(t, papers, map[string]string{
		"2024-01-12-Paper_One.md": "# Digest one\n",
		"2024-01-12-Paper_Two.md": "# Digest two\n",
	})

	cfg := types.PodcastConfig{OutputDir: t.TempDir()}
	cfg.Validate()

	speech := &fakeSpeech{}
	var buf bytes.Buffer
	outPath, err := Generate(context.Background(), speech, cfg, dir, &buf)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("audio file not written: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Errorf("audio content = %q", data)
	}
	if !strings.HasSuffix(outPath, ".mp3") || !strings.Contains(filepath.Base(outPath), "digest-") {
		t.Errorf("outPath = %q", outPath)
	}

	for _, want := range []string{"Paper One", "Digest one", "Paper Two", "Digest two"} {
		if !strings.Contains(speech.script, want) {
			t.Errorf("script missing %q:\n%s", want, speech.script)
		}
	}
}

func TestGenerateSkipsPapersWithoutDigest(t *testing.T) {
	papers := []types.SelectedPaper{
		selectedPaper("2401.00001", "Paper One", "2024-01-12-Paper_One.pdf"),
		selectedPaper("2401.00002", "Paper Two", "2024-01-12-Paper_Two.pdf"),
	}
	dir := writeWorkDir(t, papers, map[string]string{
		"2024-01-12-Paper_One.md": "# Digest one\n",
	})

	cfg := types.PodcastConfig{OutputDir: t.TempDir()}
	cfg.Validate()

	speech := &fakeSpeech{}
	var buf bytes.Buffer
	if _, err := Generate(context.Background(), speech, cfg, dir, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if strings.Contains(speech.script, "Paper Two") {
		t.Error("script includes a paper without a digest")
	}
	if !strings.Contains(buf.String(), "skipped 2401.00002") {
		t.Errorf("missing skip log line:\n%s", buf.String())
	}
}

func TestGenerateFailsWithNoDigests(t *testing.T) {
	papers := []types.SelectedPaper{
		selectedPaper("2401.00001", "Paper One", "2024-01-12-Paper_One.pdf"),
	}
	dir := writeWorkDir(t, papers, nil)

	cfg := types.PodcastConfig{OutputDir: t.TempDir()}
	cfg.Validate()

	var buf bytes.Buffer
	if _, err := Generate(context.Background(), &fakeSpeech{}, cfg, dir, &buf); err == nil {
		t.Fatal("expected error when no digests exist")
	}
}

func TestAudioFilename(t *testing.T) {
	at := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)
	if got := audioFilename(at); got != "digest-2024-01-15.mp3" {
		t.Errorf("audioFilename = %q", got)
	}
}

func TestOpenAIBackendSynthesize(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req speechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "tts-1" || req.Voice != "alloy" {
			t.Errorf("request = %+v", req)
		}
		fmt.Fprint(w, "audio-bytes")
	}))
	defer ts.Close()

	old := speechAPIURL
	speechAPIURL = ts.URL
	t.Cleanup(func() { speechAPIURL = old })

	b := &OpenAIBackend{
		APIKey: "test-key",
		Model:  "tts-1",
		Voice:  "alloy",
		Client: ts.Client(),
		Retry:  httputil.Policy{MaxAttempts: 2, InitialWait: time.Millisecond},
	}
	audio, err := b.Synthesize(context.Background(), "script")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "audio-bytes" {
		t.Errorf("audio = %q", audio)
	}
}
