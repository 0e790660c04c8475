package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/semantic/chunker"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

// Options control chunking and how embedding batches are issued.
type Options struct {
	WindowSize  int
	Overlap     int
	BatchSize   int
	Concurrency int
}

func DefaultOptions() Options {
	return Options{
		WindowSize:  chunker.DefaultWindowSize,
		Overlap:     chunker.DefaultOverlap,
		BatchSize:   256,
		Concurrency: 4,
	}
}

// ChunkIndex owns the chunk embeddings and their metadata. Build and Load
// replace all of it in one swap; readers never see a partial batch.
type ChunkIndex struct {
	mu         sync.RWMutex
	embedder   embedding.Embedder
	opts       Options
	dimension  int
	embeddings [][]float32
	chunks     []ChunkMeta
	texts      []string
	logger     *slog.Logger
}

func NewChunkIndex(e embedding.Embedder, opts Options) (*ChunkIndex, error) {
	defaults := DefaultOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	if _, err := chunker.SemanticChunk("", opts.WindowSize, opts.Overlap); err != nil {
		return nil, fmt.Errorf("chunk index options: %w", err)
	}
	return &ChunkIndex{
		embedder:  e,
		opts:      opts,
		dimension: e.Dimension(),
		logger:    slog.Default().With("component", "chunk-index"),
	}, nil
}

// ChunkDocuments splits each document's description into sentence windows
// and returns the chunk texts with aligned metadata. Documents with a blank
// description contribute no chunks.
func ChunkDocuments(docs []corpus.Document, windowSize, overlap int) ([]string, []ChunkMeta, error) {
	var texts []string
	var metas []ChunkMeta
	for _, d := range docs {
		pieces, err := chunker.SemanticChunk(d.Description, windowSize, overlap)
		if err != nil {
			return nil, nil, fmt.Errorf("chunking document %d: %w", d.ID, err)
		}
		for i, p := range pieces {
			texts = append(texts, p)
			metas = append(metas, ChunkMeta{DocID: d.ID, ChunkIndex: i, TotalChunks: len(pieces)})
		}
	}
	return texts, metas, nil
}

// Build chunks every document, embeds the chunks in batches on a bounded
// worker pool and swaps the result in. The first failing batch cancels the
// rest; on error the previous contents stay in place.
func (c *ChunkIndex) Build(ctx context.Context, docs []corpus.Document) error {
	start := time.Now()
	texts, metas, err := ChunkDocuments(docs, c.opts.WindowSize, c.opts.Overlap)
	if err != nil {
		return err
	}
	vectors, err := c.embedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	for i, v := range vectors {
		if len(v) != c.dimension {
			return apperrors.Errorf(apperrors.ErrEmbeddingDimensionMismatch,
				"chunk %d (doc %d) embedded to %d dimensions, want %d", i, metas[i].DocID, len(v), c.dimension)
		}
	}

	c.mu.Lock()
	c.embeddings = vectors
	c.chunks = metas
	c.texts = texts
	c.mu.Unlock()

	c.logger.Info("chunk index built",
		"documents", len(docs),
		"chunks", len(texts),
		"dimension", c.dimension,
		"duration", time.Since(start),
	)
	return nil
}

func (c *ChunkIndex) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	if len(texts) == 0 {
		return vectors, nil
	}

	pool, err := ants.NewPool(c.opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("creating embedding pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	for lo := 0; lo < len(texts); lo += c.opts.BatchSize {
		hi := min(lo+c.opts.BatchSize, len(texts))
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			out, err := c.embedder.EmbedTexts(ctx, texts[lo:hi])
			if err == nil && len(out) != hi-lo {
				err = fmt.Errorf("embedder returned %d vectors for %d texts", len(out), hi-lo)
			}
			if err != nil {
				cancel(fmt.Errorf("batch %d-%d: %w", lo, hi, err))
				return
			}
			copy(vectors[lo:hi], out)
			c.logger.Debug("embedded batch", "from", lo, "to", hi)
		})
		if submitErr != nil {
			wg.Done()
			cancel(fmt.Errorf("submitting batch %d-%d: %w", lo, hi, submitErr))
			break
		}
	}
	wg.Wait()

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return nil, cause
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Search embeds query and ranks documents by their best chunk.
func (c *ChunkIndex) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.Errorf(apperrors.ErrInvalidParameter, "query is empty")
	}
	if c.Len() == 0 {
		return nil, apperrors.ErrNoChunksIndexed
	}
	vec, err := c.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return c.SearchVector(vec, limit)
}

// SearchVector ranks documents against an already embedded query.
func (c *ChunkIndex) SearchVector(query []float32, limit int) ([]Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Aggregate(query, c.embeddings, c.chunks, limit)
}

// Len is the number of indexed chunks.
func (c *ChunkIndex) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

func (c *ChunkIndex) Embedder() embedding.Embedder {
	return c.embedder
}

func (c *ChunkIndex) Dimension() int {
	return c.dimension
}

// ChunkText returns the text of the chunk described by meta.
func (c *ChunkIndex) ChunkText(meta ChunkMeta) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i, m := range c.chunks {
		if m == meta {
			return c.texts[i], true
		}
	}
	return "", false
}
