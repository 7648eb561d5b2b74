// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/digest-engine/internal/httputil"
)

// openaiAPIURL is the OpenAI embeddings endpoint. Package-level var for test
// substitution.
var openaiAPIURL = "https://api.openai.com/v1/embeddings"

// OpenAIBackend calls the OpenAI embeddings API. Each call goes through the
// shared retry policy: an index write must not silently drop a paper because
// of one transient embedding failure.
type OpenAIBackend struct {
	APIKey    string
	ModelName string
	Dims      int
	Client    *http.Client
	Retry     httputil.Policy
}

// Model returns the configured model identifier.
func (b *OpenAIBackend) Model() string { return b.ModelName }

// Dimensions returns the configured vector length.
func (b *OpenAIBackend) Dimensions() int { return b.Dims }

// openaiRequest is the request body for the embeddings API.
type openaiRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

// openaiResponse is the response body from the embeddings API.
type openaiResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedText returns the embedding for text, retrying transient failures.
func (b *OpenAIBackend) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if len(text) == 0 {
		return nil, fmt.Errorf("empty embedding input")
	}

	var vec []float32
	err := b.Retry.Do(ctx, "embedding call", func() error {
		v, err := b.embed(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (b *OpenAIBackend) embed(ctx context.Context, text string) ([]float32, error) {
	bodyBytes, err := json.Marshal(openaiRequest{Input: text, Model: b.ModelName})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embeddings API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings API returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return nil, fmt.Errorf("parsing embeddings response: %w", err)
	}
	if len(oResp.Data) == 0 {
		return nil, fmt.Errorf("embeddings API returned no data")
	}

	raw := oResp.Data[0].Embedding
	if b.Dims > 0 && len(raw) != b.Dims {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(raw), b.Dims)
	}

	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}
