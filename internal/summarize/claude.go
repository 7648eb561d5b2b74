// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/template"

	"github.com/pdiddy/digest-engine/internal/httputil"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// digestPromptTmpl is the prompt sent to the Claude API for each paper. It
// asks for a Markdown digest aimed at a reader deciding whether the paper
// is worth their time.
var digestPromptTmpl = template.Must(template.New("digest").Parse(`You are a research digest writer. Summarize the following paper for a technical reader who is deciding whether to read it in full.

Write Markdown with these sections:
- A one-paragraph overview of the problem and the contribution
- "Key findings": 3-5 bullet points with the concrete results
- "Method": a short paragraph on how the work was done
- "Relevance": one sentence on who should read this paper

Be specific: prefer numbers, benchmark names, and technique names from the paper over generalities. Do not include any text outside the digest itself.

Title: {{.Title}}
Abstract: {{.Abstract}}

Paper text:
{{.Text}}
`))

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Claude Messages API to produce paper digests.
type ClaudeBackend struct {
	APIKey string
	Model  string
	Client *http.Client
	Retry  httputil.Policy
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Summarize renders the digest prompt and calls the Claude API, retrying
// transient failures under the shared policy.
func (c *ClaudeBackend) Summarize(ctx context.Context, paper types.SelectedPaper, fullText string) (string, error) {
	var promptBuf bytes.Buffer
	err := digestPromptTmpl.Execute(&promptBuf, struct {
		Title, Abstract, Text string
	}{paper.Title, paper.Abstract, fullText})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	var digest string
	err = c.Retry.Do(ctx, "claude summarize", func() error {
		d, err := c.complete(ctx, promptBuf.String())
		if err != nil {
			return err
		}
		digest = d
		return nil
	})
	return digest, err
}

func (c *ClaudeBackend) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: 4096,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Claude API response")
}
