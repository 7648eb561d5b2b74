// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selection

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// NamedQuery is one curated research interest from the queries file.
type NamedQuery struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

// Text joins the query terms into the free-text form used for both the
// lexical match and the query embedding.
func (q NamedQuery) Text() string {
	return strings.Join(q.Terms, " ")
}

// queriesFile is the on-disk shape of queries.yaml.
type queriesFile struct {
	Queries []NamedQuery `yaml:"queries"`
}

// LoadQueries reads the named queries from a YAML file. Queries without a
// name or without terms are rejected so a typo fails the run instead of
// silently selecting nothing.
func LoadQueries(path string) ([]NamedQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading queries file: %w", err)
	}

	var qf queriesFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing queries file: %w", err)
	}
	if len(qf.Queries) == 0 {
		return nil, fmt.Errorf("queries file %s contains no queries", path)
	}

	for i, q := range qf.Queries {
		if strings.TrimSpace(q.Name) == "" {
			return nil, fmt.Errorf("query %d has no name", i+1)
		}
		if len(q.Terms) == 0 {
			return nil, fmt.Errorf("query %q has no terms", q.Name)
		}
	}
	return qf.Queries, nil
}
