// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed turns text into fixed-length vectors for similarity search.
// The Service interface lets tests supply a deterministic backend; the
// production backend calls the OpenAI embeddings API.
// See docs/ARCHITECTURE.md § Embedding.
package embed

import (
	"context"
	"strings"
)

// Service produces embeddings. Implementations must return vectors of a
// single fixed length for the lifetime of an index: mixing models breaks
// cosine comparisons silently, so the index records the model name.
type Service interface {
	// EmbedText returns the embedding for text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Model returns the model identifier recorded in the index.
	Model() string

	// Dimensions returns the vector length.
	Dimensions() int
}

// BuildText produces the canonical embedding input for a paper:
// title, newline, abstract. Ingestion and query embedding both use this
// shape so scores stay comparable.
func BuildText(title, abstract string) string {
	title = strings.TrimSpace(title)
	abstract = strings.TrimSpace(abstract)
	if abstract == "" {
		return title
	}
	return title + "\n" + abstract
}
