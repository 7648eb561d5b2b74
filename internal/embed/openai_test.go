// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pdiddy/digest-engine/internal/httputil"
)

func fastRetry() httputil.Policy {
	return httputil.Policy{MaxAttempts: 3, InitialWait: time.Millisecond, Multiplier: 2}
}

func withAPIURL(t *testing.T, url string) {
	t.Helper()
	old := openaiAPIURL
	openaiAPIURL = url
	t.Cleanup(func() { openaiAPIURL = old })
}

func TestBuildText(t *testing.T) {
	tests := []struct {
		name            string
		title, abstract string
		want            string
	}{
		{"both", "A Title", "An abstract.", "A Title\nAn abstract."},
		{"no abstract", "A Title", "", "A Title"},
		{"whitespace trimmed", "  A Title ", " An abstract. ", "A Title\nAn abstract."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildText(tt.title, tt.abstract); got != tt.want {
				t.Errorf("BuildText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmbedText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("model = %q", req.Model)
		}
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer ts.Close()
	withAPIURL(t, ts.URL)

	b := &OpenAIBackend{
		APIKey:    "test-key",
		ModelName: "text-embedding-3-small",
		Dims:      3,
		Client:    ts.Client(),
		Retry:     fastRetry(),
	}

	vec, err := b.EmbedText(context.Background(), "some paper text")
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vec = %v", vec)
	}
}

func TestEmbedTextDimensionMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2]}]}`)
	}))
	defer ts.Close()
	withAPIURL(t, ts.URL)

	b := &OpenAIBackend{ModelName: "m", Dims: 3, Client: ts.Client(), Retry: fastRetry()}
	if _, err := b.EmbedText(context.Background(), "text"); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEmbedTextRetriesThenPropagates(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()
	withAPIURL(t, ts.URL)

	b := &OpenAIBackend{ModelName: "m", Client: ts.Client(), Retry: fastRetry()}
	if _, err := b.EmbedText(context.Background(), "text"); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestEmbedTextEmptyInput(t *testing.T) {
	b := &OpenAIBackend{ModelName: "m", Retry: fastRetry()}
	if _, err := b.EmbedText(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty input")
	}
}
