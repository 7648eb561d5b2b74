// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the digest-engine pipeline.
// See docs/ARCHITECTURE.md § Pipeline Interface, § Data Structures.
package types

import "time"

// Paper is the unit of storage and retrieval in the paper index. One record
// exists per arXiv identifier; re-ingesting an identifier is a no-op.
type Paper struct {
	// ID is the short-form arXiv identifier (e.g. "2401.01234").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the catalog.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// ArxivURL is the human-readable abstract page.
	ArxivURL string `json:"arxiv_url" yaml:"arxiv_url"`

	// PDFURL is the downloadable document location.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// PublishedAt is the submission date. Date precision; the time-of-day
	// component is always midnight UTC.
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`

	// Embedding is the fixed-length vector over title and abstract, computed
	// once at ingestion. Never recomputed on read.
	Embedding []float32 `json:"-" yaml:"-"`

	// FullText is populated lazily by the summarize stage; empty at ingestion.
	FullText string `json:"full_text,omitempty" yaml:"full_text,omitempty"`
}

// ScoredPaper is a paper together with its hybrid relevance score.
type ScoredPaper struct {
	Paper
	Score float64 `json:"score" yaml:"score"`
}

// SelectedPaper is one row of the selection report: a scored paper, the named
// query that surfaced it, and the local filename of its downloaded document.
type SelectedPaper struct {
	Paper
	Score    float64 `json:"score" yaml:"score"`
	Query    string  `json:"query" yaml:"query"`
	Filename string  `json:"filename" yaml:"filename"`
}

// DateOnly normalizes t to midnight UTC, the precision used for windowing
// and checkpoint comparisons.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
