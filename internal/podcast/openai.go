// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package podcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/digest-engine/internal/httputil"
)

// speechAPIURL is the OpenAI speech endpoint. Package-level var for test
// substitution.
var speechAPIURL = "https://api.openai.com/v1/audio/speech"

// OpenAIBackend synthesizes speech via the OpenAI audio API.
type OpenAIBackend struct {
	APIKey string
	Model  string
	Voice  string
	Client *http.Client
	Retry  httputil.Policy
}

type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// Synthesize returns MP3 audio for the script, retrying transient failures
// under the shared policy.
func (b *OpenAIBackend) Synthesize(ctx context.Context, script string) ([]byte, error) {
	var audio []byte
	err := b.Retry.Do(ctx, "speech synthesis", func() error {
		a, err := b.synthesize(ctx, script)
		if err != nil {
			return err
		}
		audio = a
		return nil
	})
	return audio, err
}

func (b *OpenAIBackend) synthesize(ctx context.Context, script string) ([]byte, error) {
	bodyBytes, err := json.Marshal(speechRequest{Model: b.Model, Input: script, Voice: b.Voice})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, speechAPIURL, bytes.NewReader(bodyBytes))
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
		return nil, fmt.Errorf("calling speech API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("speech API returned %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech API returned empty audio")
	}
	return audio, nil
}
