// Package handler exposes the executor over HTTP:
// GET /api/v1/search/{mode}?q=...&limit=...&k1=...&b=...&fusion=weighted|rrf&alpha=...&k=...
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/metrics"
)

type SearchExecutor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.SearchResult, error)
}

// Defaults fill in parameters the client leaves out.
type Defaults struct {
	Limit      int
	MaxResults int
	Params     ranker.Params
	Alpha      float64
}

type Handler struct {
	executor SearchExecutor
	cache    *cache.QueryCache
	metrics  *metrics.Metrics
	defaults Defaults
	logger   *slog.Logger
}

// New wires a handler. queryCache and m may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, m *metrics.Metrics, defaults Defaults) *Handler {
	return &Handler{
		executor: exec,
		cache:    queryCache,
		metrics:  m,
		defaults: defaults,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the search and cache routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search/{mode}", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := h.parseRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, req, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, req)
		})
	} else {
		result, err = h.executor.Execute(ctx, req)
	}
	if err != nil {
		log.Error("search failed", "mode", req.Mode, "query", req.Query, "error", err)
		h.writeError(w, err)
		return
	}

	elapsed := time.Since(start)
	if h.metrics != nil {
		status := "miss"
		if cacheHit {
			status = "hit"
		}
		if h.cache == nil {
			status = "disabled"
		}
		h.metrics.SearchLatency.WithLabelValues(string(req.Mode), status).Observe(elapsed.Seconds())
	}
	log.Info("search completed",
		"mode", req.Mode,
		"query", req.Query,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) parseRequest(r *http.Request) (executor.Request, error) {
	mode, err := executor.ParseMode(r.PathValue("mode"))
	if err != nil {
		return executor.Request{}, err
	}
	q := r.URL.Query()
	req := executor.Request{
		Mode:   mode,
		Query:  q.Get("q"),
		Limit:  h.defaults.Limit,
		Params: h.defaults.Params,
		Alpha:  h.defaults.Alpha,
	}
	if req.Query == "" {
		return req, apperrors.Errorf(apperrors.ErrInvalidParameter, "query parameter 'q' is required")
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return req, apperrors.Errorf(apperrors.ErrInvalidParameter, "limit must be a positive integer")
		}
		req.Limit = n
	}
	if h.defaults.MaxResults > 0 && req.Limit > h.defaults.MaxResults {
		req.Limit = h.defaults.MaxResults
	}
	for name, dst := range map[string]*float64{"k1": &req.Params.K1, "b": &req.Params.B, "alpha": &req.Alpha} {
		s := q.Get(name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return req, apperrors.Errorf(apperrors.ErrInvalidParameter, "%s must be a number", name)
		}
		*dst = v
	}
	if req.Fusion, err = executor.ParseFusion(q.Get("fusion")); err != nil {
		return req, err
	}
	if s := q.Get("k"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return req, apperrors.Errorf(apperrors.ErrInvalidParameter, "k must be a positive integer")
		}
		req.RRFK = n
	}
	return req, nil
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.Errorf(apperrors.ErrUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Internal failures are not echoed
// to the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
