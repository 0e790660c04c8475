// Package semantic holds the chunk-level embedding index and reduces
// chunk similarities to one score per document.
package semantic

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/merger"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

// ChunkMeta locates a chunk within its document.
type ChunkMeta struct {
	DocID       int `json:"doc_id"`
	ChunkIndex  int `json:"chunk_index"`
	TotalChunks int `json:"total_chunks"`
}

// Result is one document's max-pooled score and the chunk that produced it.
type Result struct {
	DocID     int       `json:"doc_id"`
	Score     float64   `json:"score"`
	BestChunk ChunkMeta `json:"best_chunk"`
}

// CosineSimilarity returns dot(a, b) / (|a| |b|), or 0 when either vector
// has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, apperrors.Errorf(apperrors.ErrEmbeddingDimensionMismatch, "%d vs %d dimensions", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Aggregate scores every chunk against query, keeps the best chunk of each
// document and returns the top limit documents, score descending then doc
// id ascending. embeddings and chunks are aligned by position. A limit of
// zero or less returns every document.
func Aggregate(query []float32, embeddings [][]float32, chunks []ChunkMeta, limit int) ([]Result, error) {
	if len(embeddings) == 0 {
		return nil, apperrors.ErrNoChunksIndexed
	}
	if len(embeddings) != len(chunks) {
		return nil, apperrors.Errorf(apperrors.ErrInvalidParameter,
			"%d embeddings but %d chunk records", len(embeddings), len(chunks))
	}

	best := make(map[int]Result)
	for i, vec := range embeddings {
		sim, err := CosineSimilarity(query, vec)
		if err != nil {
			return nil, err
		}
		meta := chunks[i]
		cur, seen := best[meta.DocID]
		if !seen || sim > cur.Score {
			best[meta.DocID] = Result{DocID: meta.DocID, Score: sim, BestChunk: meta}
		}
	}

	results := make([]Result, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}
	return merger.TopK(results, limit, func(a, b Result) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.DocID < b.DocID
	}), nil
}
