// Package corpus defines the documents the engine indexes and the sources
// they are loaded from.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Document is one entry of the collection. IDs are unique and stable across
// rebuilds.
type Document struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Text is the string the lexical index tokenizes.
func (d Document) Text() string {
	return d.Title + " " + d.Description
}

// Source yields the whole collection in a stable order.
type Source interface {
	Documents(ctx context.Context) ([]Document, error)
}

// JSONFile reads a collection shaped as {"movies": [{id, title, description}, ...]}.
type JSONFile struct {
	Path string
}

type jsonCorpus struct {
	Movies []Document `json:"movies"`
}

func (j JSONFile) Documents(ctx context.Context) ([]Document, error) {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", j.Path, err)
	}
	var c jsonCorpus
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", j.Path, err)
	}
	return c.Movies, nil
}

// ByID indexes documents by their id. Later duplicates win; callers that
// care about duplicates should build the lexical index first.
func ByID(docs []Document) map[int]Document {
	m := make(map[int]Document, len(docs))
	for _, d := range docs {
		m[d.ID] = d
	}
	return m
}
