package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/embedding/mock"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/embedding/openai"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/semantic"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/resilience"
)

// newTokenizer uses the configured stop-word file, or the built-in list
// when that file does not exist.
func newTokenizer(cfg *config.Config) (*tokenizer.Tokenizer, error) {
	words, err := tokenizer.LoadStopWords(cfg.Corpus.StopwordsPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("stop-word file not found, using built-in list", "path", cfg.Corpus.StopwordsPath)
		words = tokenizer.DefaultStopWords
	case err != nil:
		return nil, err
	}
	return tokenizer.New(words, tokenizer.SuffixStemmer), nil
}

func loadDocuments(ctx context.Context, cfg *config.Config) ([]corpus.Document, error) {
	var src corpus.Source
	switch cfg.Corpus.Source {
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting to corpus database: %w", err)
		}
		defer client.Close()
		pg, err := corpus.NewPostgresSource(client, cfg.Corpus.Table)
		if err != nil {
			return nil, err
		}
		src = pg
	default:
		src = corpus.JSONFile{Path: cfg.Corpus.Path}
	}
	docs, err := src.Documents(ctx)
	if err != nil {
		return nil, err
	}
	if err := corpus.Validate(docs); err != nil {
		return nil, err
	}
	slog.Debug("corpus loaded", "source", cfg.Corpus.Source, "documents", len(docs))
	return docs, nil
}

// newEmbedder builds the configured embedder. The OpenAI client is wrapped
// with timeout, retry and a circuit breaker whose state is exported to m
// when m is non-nil.
func newEmbedder(e *env, m *metrics.Metrics) (embedding.Embedder, error) {
	if e.embedder == "mock" {
		return mock.New(e.cfg.Embedding.Dimension), nil
	}
	client, err := openai.New(e.cfg.Embedding)
	if err != nil {
		return nil, err
	}
	cfg := embedding.ResilientConfig{
		Timeout:     e.cfg.Embedding.Timeout,
		MaxAttempts: e.cfg.Embedding.MaxAttempts,
	}
	if m != nil {
		cfg.Breaker.OnStateChange = func(_ string, _, to resilience.State) {
			m.EmbeddingCircuit.Set(float64(to))
		}
	}
	return embedding.NewResilient(client, cfg), nil
}

func bm25Params(cfg *config.Config) ranker.Params {
	return ranker.Params{K1: cfg.BM25.K1, B: cfg.BM25.B}
}

type engineOptions struct {
	semantic bool
	notify   bool
	metrics  *metrics.Metrics
	extra    []indexer.Option
}

// newEngine assembles an empty engine. The returned cleanup releases the
// Kafka producer when notifications are on.
func newEngine(e *env, opts engineOptions) (*indexer.Engine, func(), error) {
	cfg := e.cfg
	tok, err := newTokenizer(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	engineOpts := append([]indexer.Option(nil), opts.extra...)

	if opts.semantic {
		emb, err := newEmbedder(e, opts.metrics)
		if err != nil {
			return nil, nil, err
		}
		chunks, err := semantic.NewChunkIndex(emb, semantic.Options{
			WindowSize:  cfg.Chunking.WindowSize,
			Overlap:     cfg.Chunking.Overlap,
			BatchSize:   cfg.Embedding.BatchSize,
			Concurrency: cfg.Embedding.Concurrency,
		})
		if err != nil {
			return nil, nil, err
		}
		engineOpts = append(engineOpts, indexer.WithChunkIndex(chunks))
	}
	if opts.notify && cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		engineOpts = append(engineOpts, indexer.WithNotifier(indexer.NewKafkaNotifier(producer)))
		cleanup = func() {
			if err := producer.Close(); err != nil {
				slog.Warn("closing kafka producer", "error", err)
			}
		}
	}

	engine, err := indexer.NewEngine(cfg.Indexer, index.New(tok, cfg.Indexer.Workers), engineOpts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return engine, cleanup, nil
}

// loadLexical loads the persisted inverted index, pointing the user at the
// build command when there is none.
func loadLexical(engine *indexer.Engine) error {
	if err := engine.LoadLexical(); err != nil {
		if errors.Is(err, apperrors.ErrCacheCorruption) {
			return fmt.Errorf("%w (run `hybridsearch build` first)", err)
		}
		return err
	}
	return nil
}
