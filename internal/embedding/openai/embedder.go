// Package openai embeds text through an OpenAI-compatible embeddings API
// (OpenAI itself, Ollama, llama.cpp server and similar).
package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

type Embedder struct {
	embedder  embeddings.Embedder
	dimension int
	logger    *slog.Logger
}

var _ embedding.Embedder = (*Embedder)(nil)

// New connects to the embedding service described by cfg. A blank token is
// sent as "none" for local services that do not authenticate.
func New(cfg config.EmbeddingConfig) (*Embedder, error) {
	if cfg.Host == "" || cfg.Model == "" {
		return nil, apperrors.Errorf(apperrors.ErrInvalidParameter, "embedding host and model are required")
	}
	if cfg.Dimension <= 0 {
		return nil, apperrors.Errorf(apperrors.ErrInvalidParameter, "embedding dimension must be positive, got %d", cfg.Dimension)
	}
	token := cfg.Token
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}
	e, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return &Embedder{
		embedder:  e,
		dimension: cfg.Dimension,
		logger:    slog.Default().With("component", "openai-embedder", "model", cfg.Model),
	}, nil
}

func (e *Embedder) Dimension() int {
	return e.dimension
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in one request and checks that the service
// returned one vector of the configured dimension per input.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings", "count", len(texts))
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "error", err)
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, apperrors.Errorf(apperrors.ErrEmbeddingDimensionMismatch,
				"vector %d has %d dimensions, want %d", i, len(v), e.dimension)
		}
	}
	return vectors, nil
}
