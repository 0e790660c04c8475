package semantic

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

type chunkSnapshot struct {
	Dimension  int         `json:"dimension"`
	Embeddings [][]float32 `json:"embeddings"`
	Chunks     []ChunkMeta `json:"chunks"`
	Texts      []string    `json:"texts"`
}

func (c *ChunkIndex) Save(path string) error {
	c.mu.RLock()
	snap := chunkSnapshot{
		Dimension:  c.dimension,
		Embeddings: c.embeddings,
		Chunks:     c.chunks,
		Texts:      c.texts,
	}
	err := segment.Write(path, segment.KindChunks, snap)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("saving chunk index: %w", err)
	}
	c.logger.Info("chunk index saved", "path", path, "chunks", len(snap.Chunks))
	return nil
}

// Load replaces the chunk index with the artifact at path. Missing or
// inconsistent files return ErrCacheCorruption; a cache built for another
// dimension returns ErrEmbeddingDimensionMismatch. Either way the current
// contents are kept.
func (c *ChunkIndex) Load(path string) error {
	var snap chunkSnapshot
	if _, err := segment.Read(path, segment.KindChunks, &snap); err != nil {
		return fmt.Errorf("loading chunk index: %w", err)
	}
	if err := snap.validate(c.dimension); err != nil {
		return fmt.Errorf("loading chunk index: %w", err)
	}
	c.mu.Lock()
	c.embeddings = snap.Embeddings
	c.chunks = snap.Chunks
	c.texts = snap.Texts
	c.mu.Unlock()
	c.logger.Info("chunk index loaded", "path", path, "chunks", len(snap.Chunks))
	return nil
}

func (s chunkSnapshot) validate(dimension int) error {
	if s.Dimension != dimension {
		return apperrors.Errorf(apperrors.ErrEmbeddingDimensionMismatch,
			"cache holds %d-dimension vectors, embedder produces %d", s.Dimension, dimension)
	}
	if len(s.Embeddings) != len(s.Chunks) || len(s.Chunks) != len(s.Texts) {
		return apperrors.Errorf(apperrors.ErrCacheCorruption,
			"%d embeddings, %d chunk records, %d texts", len(s.Embeddings), len(s.Chunks), len(s.Texts))
	}
	for i, v := range s.Embeddings {
		if len(v) != s.Dimension {
			return apperrors.Errorf(apperrors.ErrCacheCorruption, "embedding %d has %d dimensions", i, len(v))
		}
		m := s.Chunks[i]
		if m.DocID < 0 || m.ChunkIndex < 0 || m.ChunkIndex >= m.TotalChunks {
			return apperrors.Errorf(apperrors.ErrCacheCorruption, "chunk record %d is malformed: %+v", i, m)
		}
	}
	return nil
}
