// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// HybridQuery ranks papers against a query by blending two signals into one
// ordered list: FTS5 bm25 over title+abstract (lexical) and cosine
// similarity between queryVec and the stored embeddings (vector). The
// combined score is alpha*vector + (1-alpha)*lexical with lexical scores
// min-max normalized per query and cosine clamped to [0,1]. Ties break by
// identifier ascending, so a fixed index state and query always produce the
// same ordering.
func (ix *Index) HybridQuery(ctx context.Context, text string, queryVec []float32, limit int) ([]types.ScoredPaper, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	lexical, err := ix.lexicalScores(ctx, text)
	if err != nil {
		return nil, err
	}

	vector, err := ix.vectorScores(ctx, queryVec)
	if err != nil {
		return nil, err
	}

	// Union of candidates; either signal alone can surface a paper.
	combined := make(map[string]float64, len(vector))
	for id, v := range vector {
		combined[id] = ix.alpha * v
	}
	for id, l := range lexical {
		combined[id] += (1 - ix.alpha) * l
	}

	ids := make([]string, 0, len(combined))
	for id := range combined {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := combined[ids[i]], combined[ids[j]]
		if si != sj {
			return si > sj
		}
		return ids[i] < ids[j]
	})

	if len(ids) > limit {
		ids = ids[:limit]
	}

	results := make([]types.ScoredPaper, 0, len(ids))
	for _, id := range ids {
		p, err := ix.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading paper %s: %w", id, err)
		}
		if p == nil {
			continue
		}
		results = append(results, types.ScoredPaper{Paper: *p, Score: combined[id]})
	}
	return results, nil
}

// lexicalScores runs the FTS5 match and min-max normalizes bm25 ranks into
// [0,1] per query (bm25 assigns smaller values to better matches).
func (ix *Index) lexicalScores(ctx context.Context, text string) (map[string]float64, error) {
	match := ftsMatchExpr(text)
	if match == "" {
		return map[string]float64{}, nil
	}

	rows, err := ix.db.QueryContext(ctx,
		`SELECT p.id, bm25(papers_fts) AS rank
		 FROM papers_fts
		 JOIN papers p ON p.rowid = papers_fts.rowid
		 WHERE papers_fts MATCH ?`, match)
	if err != nil {
		return nil, fmt.Errorf("lexical query: %w", err)
	}
	defer rows.Close()

	ranks := make(map[string]float64)
	best, worst := 0.0, 0.0
	first := true
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, fmt.Errorf("scanning lexical row: %w", err)
		}
		ranks[id] = rank
		if first || rank < best {
			best = rank
		}
		if first || rank > worst {
			worst = rank
		}
		first = false
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lexical rows: %w", err)
	}

	scores := make(map[string]float64, len(ranks))
	for id, rank := range ranks {
		if worst == best {
			scores[id] = 1
			continue
		}
		scores[id] = (worst - rank) / (worst - best)
	}
	return scores, nil
}

// vectorScores computes cosine similarity between queryVec and every stored
// embedding, clamped to [0,1].
func (ix *Index) vectorScores(ctx context.Context, queryVec []float32) (map[string]float64, error) {
	if len(queryVec) == 0 {
		return map[string]float64{}, nil
	}

	rows, err := ix.db.QueryContext(ctx,
		`SELECT id, embedding FROM papers WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("vector scan: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector row: %w", err)
		}
		sim := cosineSimilarity(queryVec, decodeVector(blob))
		if sim < 0 {
			sim = 0
		} else if sim > 1 {
			sim = 1
		}
		scores[id] = sim
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector rows: %w", err)
	}
	return scores, nil
}

// ftsMatchExpr turns free text into a deterministic FTS5 match expression:
// alphanumeric tokens, lowercased, quoted, OR-joined. Quoting keeps FTS5
// operators in user text (AND, NEAR, ...) from being interpreted.
func ftsMatchExpr(text string) string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + tok + `"`
	}
	return strings.Join(quoted, " OR ")
}
