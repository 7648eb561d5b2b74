// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index stores paper records in a SQLite database that supports
// both lexical (FTS5) and vector (embedding cosine) retrieval.
// The index is insert-only: records are never overwritten, so historical
// embeddings cannot be mutated by a later run.
// See docs/ARCHITECTURE.md § Paper Index.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/digest-engine/pkg/types"
)

const dateFmt = "2006-01-02"

// Index is a content-addressed paper store keyed by arXiv identifier.
// It is an explicitly constructed, explicitly closed resource: callers
// receive an *Index rather than reaching for a process-wide handle.
type Index struct {
	db    *sql.DB
	alpha float64
}

// Open opens or creates the index database at path, creating the schema on
// first use. The embedding model name is recorded in the database; opening
// an index written with a different model fails rather than silently mixing
// incomparable vectors. alpha is the hybrid blend factor (vector weight).
func Open(path string, alpha float64, embedModel string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ix := &Index{db: db, alpha: alpha}

	if err := ix.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := ix.checkEmbedModel(embedModel); err != nil {
		db.Close()
		return nil, err
	}

	return ix, nil
}

// Close releases the database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func (ix *Index) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			abstract TEXT,
			arxiv_url TEXT,
			pdf_url TEXT,
			published_date TEXT,
			full_text TEXT,
			embedding BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_published ON papers(published_date)`,
		`CREATE TABLE IF NOT EXISTS index_meta (
			key TEXT PRIMARY KEY,
			value TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := ix.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table over title+abstract with triggers for sync.
	var ftsExists int
	if err := ix.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, content=papers, content_rowid=rowid)`,
			`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
				INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
			`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			END`,
			`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
				INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := ix.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// checkEmbedModel records the embedding model on first open and rejects a
// mismatch afterwards.
func (ix *Index) checkEmbedModel(model string) error {
	if model == "" {
		return nil
	}

	var stored string
	err := ix.db.QueryRow(`SELECT value FROM index_meta WHERE key = 'embedding_model'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err := ix.db.Exec(
			`INSERT INTO index_meta (key, value) VALUES ('embedding_model', ?)`, model)
		if err != nil {
			return fmt.Errorf("recording embedding model: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("reading index metadata: %w", err)
	case stored != model:
		return fmt.Errorf("index was built with embedding model %q, configured model is %q", stored, model)
	}
	return nil
}

// Upsert inserts p if its identifier is not already present. The returned
// bool reports whether a new row was inserted; an existing record is left
// untouched in every field (insert-only semantics).
func (ix *Index) Upsert(ctx context.Context, p *types.Paper) (bool, error) {
	var dateStr string
	if !p.PublishedAt.IsZero() {
		dateStr = p.PublishedAt.UTC().Format(dateFmt)
	}

	res, err := ix.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO papers (id, title, abstract, arxiv_url, pdf_url, published_date, full_text, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Abstract, p.ArxivURL, p.PDFURL, dateStr, p.FullText, encodeVector(p.Embedding),
	)
	if err != nil {
		return false, fmt.Errorf("inserting paper %s: %w", p.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert result: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of indexed papers.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT count(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

// Get returns the stored record for id, or nil when absent.
func (ix *Index) Get(ctx context.Context, id string) (*types.Paper, error) {
	row := ix.db.QueryRowContext(ctx,
		`SELECT id, title, abstract, arxiv_url, pdf_url, published_date, full_text, embedding
		 FROM papers WHERE id = ?`, id)

	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(s scanner) (*types.Paper, error) {
	var (
		p        types.Paper
		abstract sql.NullString
		arxivURL sql.NullString
		pdfURL   sql.NullString
		dateStr  sql.NullString
		fullText sql.NullString
		blob     []byte
	)
	if err := s.Scan(&p.ID, &p.Title, &abstract, &arxivURL, &pdfURL, &dateStr, &fullText, &blob); err != nil {
		return nil, err
	}

	p.Abstract = abstract.String
	p.ArxivURL = arxivURL.String
	p.PDFURL = pdfURL.String
	p.FullText = fullText.String
	if dateStr.Valid && dateStr.String != "" {
		if d, err := time.Parse(dateFmt, dateStr.String); err == nil {
			p.PublishedAt = d
		}
	}
	p.Embedding = decodeVector(blob)
	return &p, nil
}
