// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "digest-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

func (c *HTTPConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "digest-engine/0.1"
	}
}

// IngestConfig holds settings for the ingestion stage.
type IngestConfig struct {
	// Categories lists the arXiv categories to fetch (e.g. "cs.CL", "cs.LG").
	// Joined with OR into the catalog query.
	Categories []string `json:"categories" yaml:"categories" mapstructure:"categories"`

	// LookbackDays widens the fetch window below the checkpoint to tolerate
	// late-arriving catalog entries (default 3).
	LookbackDays int `json:"lookback_days" yaml:"lookback_days" mapstructure:"lookback_days"`

	// MaxResults caps the number of results fetched per run (default 200).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// OutputDir receives papers_found.csv and the checkpoint file.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// CheckpointFile is the checkpoint filename inside OutputDir
	// (default "most_recent_day_searched.txt").
	CheckpointFile string `json:"checkpoint_file" yaml:"checkpoint_file" mapstructure:"checkpoint_file"`
}

// Validate applies defaults and rejects unusable values.
func (c *IngestConfig) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("ingest: at least one category is required")
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = 3
	}
	if c.LookbackDays < 0 {
		return fmt.Errorf("ingest: lookback_days must be positive, got %d", c.LookbackDays)
	}
	if c.MaxResults == 0 {
		c.MaxResults = 200
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("ingest: max_results must be positive, got %d", c.MaxResults)
	}
	if c.OutputDir == "" {
		c.OutputDir = "data/papers-found"
	}
	if c.CheckpointFile == "" {
		c.CheckpointFile = "most_recent_day_searched.txt"
	}
	return nil
}

// IndexConfig holds settings for the paper index.
type IndexConfig struct {
	// Path is the SQLite database file (default "data/index/papers.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// HybridAlpha blends vector and lexical scores in hybrid queries:
	// score = alpha*vector + (1-alpha)*lexical. Default 0.5.
	HybridAlpha float64 `json:"hybrid_alpha" yaml:"hybrid_alpha" mapstructure:"hybrid_alpha"`
}

// Validate applies defaults and rejects unusable values.
func (c *IndexConfig) Validate() error {
	if c.Path == "" {
		c.Path = "data/index/papers.db"
	}
	if c.HybridAlpha == 0 {
		c.HybridAlpha = 0.5
	}
	if c.HybridAlpha < 0 || c.HybridAlpha > 1 {
		return fmt.Errorf("index: hybrid_alpha must be in [0,1], got %g", c.HybridAlpha)
	}
	return nil
}

// EmbeddingConfig holds settings for the embedding service.
type EmbeddingConfig struct {
	// Model is the embedding model identifier (default "text-embedding-3-small").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Dimensions is the embedding vector length (default 1536).
	Dimensions int `json:"dimensions" yaml:"dimensions" mapstructure:"dimensions"`

	// APIKey authenticates against the embedding API. Usually supplied via
	// .secrets/openai-api-key rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// Validate applies defaults and rejects unusable values.
func (c *EmbeddingConfig) Validate() error {
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	if c.Dimensions == 0 {
		c.Dimensions = 1536
	}
	if c.Dimensions < 0 {
		return fmt.Errorf("embedding: dimensions must be positive, got %d", c.Dimensions)
	}
	return nil
}

// SelectConfig holds settings for the selection stage.
type SelectConfig struct {
	// QueriesFile is the YAML file of named queries (default "queries.yaml").
	QueriesFile string `json:"queries_file" yaml:"queries_file" mapstructure:"queries_file"`

	// PapersPerQuery caps results per named query (default 5).
	PapersPerQuery int `json:"papers_per_query" yaml:"papers_per_query" mapstructure:"papers_per_query"`

	// OutputDir receives downloaded PDFs and papers_to_summarize.csv.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
}

// Validate applies defaults and rejects unusable values.
func (c *SelectConfig) Validate() error {
	if c.QueriesFile == "" {
		c.QueriesFile = "queries.yaml"
	}
	if c.PapersPerQuery == 0 {
		c.PapersPerQuery = 5
	}
	if c.PapersPerQuery < 0 {
		return fmt.Errorf("select: papers_per_query must be positive, got %d", c.PapersPerQuery)
	}
	if c.OutputDir == "" {
		c.OutputDir = "data/pdfs-to-summarize"
	}
	return nil
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// SummarizeConfig holds settings for the summarization stage.
type SummarizeConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// MaxChars caps the extracted full text sent to the model (default 176000).
	MaxChars int `json:"max_chars" yaml:"max_chars" mapstructure:"max_chars"`
}

// Validate applies defaults and rejects unusable values.
func (c *SummarizeConfig) Validate() error {
	if c.Model == "" {
		c.Model = "claude-sonnet-4-5"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.MaxChars == 0 {
		c.MaxChars = 176000
	}
	if c.MaxChars < 0 {
		return fmt.Errorf("summarize: max_chars must be positive, got %d", c.MaxChars)
	}
	return nil
}

// PodcastConfig holds settings for the audio digest stage.
type PodcastConfig struct {
	// Enabled turns the podcast stage on. Off by default.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Model is the speech synthesis model (default "tts-1").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Voice selects the synthesis voice (default "alloy").
	Voice string `json:"voice" yaml:"voice" mapstructure:"voice"`

	// OutputDir receives the generated audio file.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// APIKey authenticates against the speech API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// Validate applies defaults.
func (c *PodcastConfig) Validate() error {
	if c.Model == "" {
		c.Model = "tts-1"
	}
	if c.Voice == "" {
		c.Voice = "alloy"
	}
	if c.OutputDir == "" {
		c.OutputDir = "data/podcast"
	}
	return nil
}

// VaultConfig holds settings for the vault archival stage.
type VaultConfig struct {
	// Enabled turns vault archival on. Off by default.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// NotesDir is the vault directory for Markdown notes.
	NotesDir string `json:"notes_dir" yaml:"notes_dir" mapstructure:"notes_dir"`

	// AttachmentsDir is the vault directory for PDF attachments.
	AttachmentsDir string `json:"attachments_dir" yaml:"attachments_dir" mapstructure:"attachments_dir"`
}

// Validate rejects an enabled vault without target directories.
func (c *VaultConfig) Validate() error {
	if c.Enabled && (c.NotesDir == "" || c.AttachmentsDir == "") {
		return fmt.Errorf("vault: notes_dir and attachments_dir are required when enabled")
	}
	return nil
}

// PipelineStagesConfig names the stages the run command executes, in order.
type PipelineStagesConfig struct {
	Steps []string `json:"steps" yaml:"steps" mapstructure:"steps"`
}

// Validate applies the default step sequence.
func (c *PipelineStagesConfig) Validate() error {
	if len(c.Steps) == 0 {
		c.Steps = []string{"ingest", "select", "summarize", "cleanup"}
	}
	return nil
}

// Config groups all stage configurations for the pipeline.
type Config struct {
	HTTP      HTTPConfig           `json:"http" yaml:"http" mapstructure:"http"`
	Ingest    IngestConfig         `json:"ingest" yaml:"ingest" mapstructure:"ingest"`
	Index     IndexConfig          `json:"index" yaml:"index" mapstructure:"index"`
	Embedding EmbeddingConfig      `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Select    SelectConfig         `json:"select" yaml:"select" mapstructure:"select"`
	Summarize SummarizeConfig      `json:"summarize" yaml:"summarize" mapstructure:"summarize"`
	Podcast   PodcastConfig        `json:"podcast" yaml:"podcast" mapstructure:"podcast"`
	Vault     VaultConfig          `json:"vault" yaml:"vault" mapstructure:"vault"`
	Pipeline  PipelineStagesConfig `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
}

// Validate applies defaults across all sections and returns the first
// validation failure. Called once at startup so components never see a
// half-formed configuration.
func (c *Config) Validate() error {
	c.HTTP.applyDefaults()
	for _, v := range []interface{ Validate() error }{
		&c.Ingest, &c.Index, &c.Embedding, &c.Select,
		&c.Summarize, &c.Podcast, &c.Vault, &c.Pipeline,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
