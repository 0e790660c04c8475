package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/handler"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/redis"
)

func serveCommandDef() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve keyword, semantic and hybrid search over HTTP",
		Action: serveCommand,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "HTTP port; defaults to server.port"},
			&cli.BoolFlag{Name: "keyword-only", Usage: "Skip the chunk index and disable semantic and hybrid search"},
		},
	}
}

func serveCommand(c *cli.Context) error {
	e := envFrom(c)
	cfg := e.cfg
	ctx := commandContext(c)
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	docs, err := loadDocuments(ctx, cfg)
	if err != nil {
		return err
	}
	engine, cleanup, err := newEngine(e, engineOptions{
		semantic: !c.Bool("keyword-only"),
		metrics:  m,
		extra:    []indexer.Option{indexer.WithMetrics(m)},
	})
	if err != nil {
		return err
	}
	defer cleanup()

	if err := engine.LoadLexical(); err != nil {
		if !errors.Is(err, apperrors.ErrCacheCorruption) {
			return err
		}
		slog.Info("no usable index on disk, building", "reason", err)
		if err := engine.BuildLexical(ctx, docs); err != nil {
			return err
		}
	}
	if engine.Chunks() != nil {
		if err := engine.LoadOrBuildChunks(ctx, docs); err != nil {
			return err
		}
	}
	exec := executor.New(engine, docs, m)

	checker := health.NewChecker()
	checker.Register("index", health.Ready(engine.Ready, "lexical index is empty"))
	if chunks := engine.Chunks(); chunks != nil {
		if r, ok := chunks.Embedder().(*embedding.Resilient); ok {
			checker.Register("embedder", health.Ping(r.Healthy, false))
		}
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.Ping(redisClient.Ping, false))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Kafka.Enabled {
		after := func(ctx context.Context, event indexer.IndexCompleteEvent) {
			if event.Artifact == indexer.ArtifactLexical {
				if fresh, err := loadDocuments(ctx, cfg); err != nil {
					slog.Warn("reloading document titles failed", "error", err)
				} else {
					exec.SetDocuments(fresh)
				}
			}
			if queryCache != nil {
				if err := queryCache.Invalidate(ctx); err != nil {
					slog.Warn("cache invalidation after reload failed", "error", err)
				}
			}
		}
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, consumer.HandleMessage(engine, after))
		defer kc.Close()
		go func() {
			if err := consumer.New(kc).Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("reload consumer stopped", "error", err)
			}
		}()
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		metricsServer, err := metrics.Listen(fmt.Sprintf(":%d", cfg.Metrics.Port), reg)
		if err != nil {
			return err
		}
		go func() {
			if err := metricsServer.Serve(ctx); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	h := handler.New(exec, queryCache, m, handler.Defaults{
		Limit:      cfg.Search.DefaultLimit,
		MaxResults: cfg.Search.MaxResults,
		Params:     bm25Params(cfg),
		Alpha:      cfg.Search.HybridAlpha,
	})
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler(reg))

	chain := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if cfg.Server.RateLimit > 0 {
		chain = append(chain, middleware.RateLimit(middleware.NewLimiter(ctx, cfg.Server.RateLimit, time.Minute)))
	}
	chain = append(chain, middleware.Timeout(cfg.Server.WriteTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, chain...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening",
		"addr", server.Addr,
		"documents", engine.Index().DocCount(),
		"semantic", engine.Chunks() != nil,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	slog.Info("search service stopped")
	return nil
}
