// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pdiddy/digest-engine/internal/arxiv"
	"github.com/pdiddy/digest-engine/internal/checkpoint"
	"github.com/pdiddy/digest-engine/internal/embed"
	"github.com/pdiddy/digest-engine/internal/httputil"
	"github.com/pdiddy/digest-engine/internal/index"
	"github.com/pdiddy/digest-engine/internal/ingest"
	"github.com/pdiddy/digest-engine/internal/podcast"
	"github.com/pdiddy/digest-engine/internal/selection"
	"github.com/pdiddy/digest-engine/internal/summarize"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// loadConfig unmarshals the viper state into the validated config structs.
// Secrets fill in API keys the config file leaves empty.
func loadConfig() (*types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Embedding.APIKey = orSecret(cfg.Embedding.APIKey, "openai-api-key")
	cfg.Summarize.APIKey = orSecret(cfg.Summarize.APIKey, "anthropic-api-key")
	cfg.Podcast.APIKey = orSecret(cfg.Podcast.APIKey, "openai-api-key")
	return &cfg, nil
}

func httpClient(cfg *types.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTP.Timeout}
}

func retryPolicy() httputil.Policy {
	return httputil.DefaultPolicy(os.Stderr)
}

func openIndex(cfg *types.Config) (*index.Index, error) {
	return index.Open(cfg.Index.Path, cfg.Index.HybridAlpha, cfg.Embedding.Model)
}

func newEmbedder(cfg *types.Config) (*embed.OpenAIBackend, error) {
	if cfg.Embedding.APIKey == "" {
		return nil, fmt.Errorf("no OpenAI API key: set embedding.api_key or .secrets/openai-api-key")
	}
	return &embed.OpenAIBackend{
		APIKey:    cfg.Embedding.APIKey,
		ModelName: cfg.Embedding.Model,
		Dims:      cfg.Embedding.Dimensions,
		Client:    httpClient(cfg),
		Retry:     retryPolicy(),
	}, nil
}

func newCheckpointStore(cfg *types.Config) *checkpoint.Store {
	return &checkpoint.Store{
		Path:         filepath.Join(cfg.Ingest.OutputDir, cfg.Ingest.CheckpointFile),
		LookbackDays: cfg.Ingest.LookbackDays,
		Log:          os.Stderr,
	}
}

func newIngestCoordinator(cfg *types.Config, ix *index.Index) (*ingest.Coordinator, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return &ingest.Coordinator{
		Source:     arxiv.NewClient(httpClient(cfg), cfg.HTTP.UserAgent, retryPolicy()),
		Embed:      embedder,
		Index:      ix,
		Checkpoint: newCheckpointStore(cfg),
	}, nil
}

func newSelectionEngine(cfg *types.Config, ix *index.Index) (*selection.Engine, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return &selection.Engine{
		Index:     ix,
		Embed:     embedder,
		HTTP:      httpClient(cfg),
		UserAgent: cfg.HTTP.UserAgent,
	}, nil
}

func newSummarizeBackend(cfg *types.Config) (*summarize.ClaudeBackend, error) {
	if cfg.Summarize.APIKey == "" {
		return nil, fmt.Errorf("no Anthropic API key: set summarize.api_key or .secrets/anthropic-api-key")
	}
	return &summarize.ClaudeBackend{
		APIKey: cfg.Summarize.APIKey,
		Model:  cfg.Summarize.Model,
		Client: httpClient(cfg),
		Retry:  retryPolicy(),
	}, nil
}

func newSpeechBackend(cfg *types.Config) (*podcast.OpenAIBackend, error) {
	if cfg.Podcast.APIKey == "" {
		return nil, fmt.Errorf("no OpenAI API key: set podcast.api_key or .secrets/openai-api-key")
	}
	return &podcast.OpenAIBackend{
		APIKey: cfg.Podcast.APIKey,
		Model:  cfg.Podcast.Model,
		Voice:  cfg.Podcast.Voice,
		Client: httpClient(cfg),
		Retry:  retryPolicy(),
	}, nil
}
