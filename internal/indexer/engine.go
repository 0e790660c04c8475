// Package indexer ties the lexical index and the chunk index to the data
// directory: it builds both from a corpus, persists them, reloads them and
// announces finished builds.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/semantic"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/tracing"
)

const (
	IndexFile  = "index.seg"
	ChunksFile = "chunks.seg"

	ArtifactLexical = "lexical"
	ArtifactChunks  = "chunks"
)

// Notifier is told about every successful build.
type Notifier interface {
	NotifyIndexComplete(ctx context.Context, event IndexCompleteEvent) error
}

type Engine struct {
	cfg      config.IndexerConfig
	lexical  *index.InvertedIndex
	chunks   *semantic.ChunkIndex
	scorer   *ranker.Scorer
	metrics  *metrics.Metrics
	notifier Notifier
	logger   *slog.Logger
}

type Option func(*Engine)

// WithChunkIndex enables the semantic side of the engine.
func WithChunkIndex(c *semantic.ChunkIndex) Option {
	return func(e *Engine) { e.chunks = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// NewEngine creates the data directory if needed. Nothing is loaded until
// Load or Build is called.
func NewEngine(cfg config.IndexerConfig, lexical *index.InvertedIndex, opts ...Option) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	e := &Engine{
		cfg:     cfg,
		lexical: lexical,
		scorer:  ranker.NewScorer(lexical),
		logger:  slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Index() *index.InvertedIndex { return e.lexical }

func (e *Engine) Scorer() *ranker.Scorer { return e.scorer }

// Chunks returns the chunk index, or nil when semantic search is disabled.
func (e *Engine) Chunks() *semantic.ChunkIndex { return e.chunks }

func (e *Engine) IndexPath() string { return filepath.Join(e.cfg.DataDir, IndexFile) }

func (e *Engine) ChunksPath() string { return filepath.Join(e.cfg.DataDir, ChunksFile) }

// BuildLexical rebuilds the inverted index from docs and persists it. The
// persisted file is only replaced after a successful build.
func (e *Engine) BuildLexical(ctx context.Context, docs []corpus.Document) error {
	ctx, span := tracing.Start(ctx, "build-lexical")
	defer span.End()
	start := time.Now()

	err := e.lexical.Build(ctx, docs)
	if err == nil {
		err = e.lexical.Save(e.IndexPath())
	}
	e.observe(ArtifactLexical, "build", err, time.Since(start))
	if err != nil {
		span.SetAttr("error", err.Error())
		return fmt.Errorf("building lexical index: %w", err)
	}
	span.SetAttr("documents", e.lexical.DocCount())
	span.SetAttr("terms", e.lexical.TermCount())

	e.notify(ctx, IndexCompleteEvent{
		Artifact:  ArtifactLexical,
		Path:      e.IndexPath(),
		Documents: e.lexical.DocCount(),
		Terms:     e.lexical.TermCount(),
		TraceID:   span.TraceID,
		BuiltAt:   time.Now().UTC(),
	})
	return nil
}

// BuildChunks rebuilds and persists the chunk index.
func (e *Engine) BuildChunks(ctx context.Context, docs []corpus.Document) error {
	if e.chunks == nil {
		return apperrors.Errorf(apperrors.ErrInvalidParameter, "semantic index is not configured")
	}
	ctx, span := tracing.Start(ctx, "build-chunks")
	defer span.End()
	start := time.Now()

	err := e.chunks.Build(ctx, docs)
	if err == nil {
		err = e.chunks.Save(e.ChunksPath())
	}
	e.observe(ArtifactChunks, "build", err, time.Since(start))
	if err != nil {
		span.SetAttr("error", err.Error())
		return fmt.Errorf("building chunk index: %w", err)
	}
	span.SetAttr("chunks", e.chunks.Len())

	e.notify(ctx, IndexCompleteEvent{
		Artifact:  ArtifactChunks,
		Path:      e.ChunksPath(),
		Documents: len(docs),
		Chunks:    e.chunks.Len(),
		TraceID:   span.TraceID,
		BuiltAt:   time.Now().UTC(),
	})
	return nil
}

// LoadLexical replaces the in-memory inverted index with the persisted one.
func (e *Engine) LoadLexical() error {
	err := e.lexical.Load(e.IndexPath())
	e.observe(ArtifactLexical, "load", err, 0)
	return err
}

// LoadChunks replaces the in-memory chunk index with the persisted one.
func (e *Engine) LoadChunks() error {
	if e.chunks == nil {
		return apperrors.Errorf(apperrors.ErrInvalidParameter, "semantic index is not configured")
	}
	err := e.chunks.Load(e.ChunksPath())
	e.observe(ArtifactChunks, "load", err, 0)
	return err
}

// LoadOrBuildChunks loads the persisted chunk index and falls back to a
// build from docs when the file is missing, corrupt or was produced for a
// different embedding dimension.
func (e *Engine) LoadOrBuildChunks(ctx context.Context, docs []corpus.Document) error {
	err := e.LoadChunks()
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrCacheCorruption) && !errors.Is(err, apperrors.ErrEmbeddingDimensionMismatch) {
		return err
	}
	e.logger.Info("chunk cache unusable, rebuilding", "path", e.ChunksPath(), "reason", err)
	return e.BuildChunks(ctx, docs)
}

// Reload loads the artifact named in a completion event. It is what a
// serving process runs when another process finishes a build.
func (e *Engine) Reload(event IndexCompleteEvent) error {
	switch event.Artifact {
	case ArtifactLexical:
		return e.LoadLexical()
	case ArtifactChunks:
		if e.chunks == nil {
			e.logger.Debug("ignoring chunk reload, semantic index disabled")
			return nil
		}
		return e.LoadChunks()
	default:
		return apperrors.Errorf(apperrors.ErrInvalidParameter, "unknown artifact %q", event.Artifact)
	}
}

// Ready reports whether the lexical index holds any documents.
func (e *Engine) Ready() bool {
	return e.lexical.DocCount() > 0
}

func (e *Engine) observe(artifact, operation string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	if e.metrics == nil {
		return
	}
	e.metrics.IndexBuildsTotal.WithLabelValues(artifact, operation, status).Inc()
	if operation == "build" && err == nil {
		e.metrics.IndexBuildDuration.WithLabelValues(artifact).Observe(elapsed.Seconds())
	}
	e.metrics.IndexedDocuments.Set(float64(e.lexical.DocCount()))
	e.metrics.IndexedTerms.Set(float64(e.lexical.TermCount()))
	if e.chunks != nil {
		e.metrics.IndexedChunks.Set(float64(e.chunks.Len()))
	}
}

// notify logs delivery failures instead of returning them.
func (e *Engine) notify(ctx context.Context, event IndexCompleteEvent) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyIndexComplete(ctx, event); err != nil {
		e.logger.Warn("index completion notification failed", "artifact", event.Artifact, "error", err)
	}
}
