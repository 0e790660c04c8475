// Package executor runs keyword, semantic and hybrid queries against the
// indexer engine and decorates the ranked ids with document titles and
// snippets.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/fusion"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/semantic"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/tracing"
)

type Mode string

const (
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// ParseMode accepts the three mode names, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeKeyword, ModeSemantic, ModeHybrid:
		return m, nil
	default:
		return "", apperrors.Errorf(apperrors.ErrInvalidParameter, "unknown search mode %q", s)
	}
}

// Fusion selects how hybrid search combines the keyword and semantic lists.
type Fusion string

const (
	FusionWeighted Fusion = "weighted"
	FusionRRF      Fusion = "rrf"
)

// ParseFusion accepts "weighted" or "rrf"; an empty string is weighted.
func ParseFusion(s string) (Fusion, error) {
	switch f := Fusion(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FusionWeighted, nil
	case FusionWeighted, FusionRRF:
		return f, nil
	default:
		return "", apperrors.Errorf(apperrors.ErrInvalidParameter, "unknown fusion %q", s)
	}
}

const snippetLength = 100

// Request is a fully resolved query. Params is used by keyword and hybrid
// searches. Fusion, Alpha (weighted) and RRFK (rrf, <= 0 for the default)
// only by hybrid.
type Request struct {
	Mode   Mode
	Query  string
	Limit  int
	Params ranker.Params
	Fusion Fusion
	Alpha  float64
	RRFK   int
}

// Hit is one ranked document.
type Hit struct {
	DocID         int                 `json:"doc_id"`
	Title         string              `json:"title,omitempty"`
	Snippet       string              `json:"snippet,omitempty"`
	Score         float64             `json:"score"`
	KeywordScore  *float64            `json:"keyword_score,omitempty"`
	SemanticScore *float64            `json:"semantic_score,omitempty"`
	BestChunk     *semantic.ChunkMeta `json:"best_chunk,omitempty"`
}

type SearchResult struct {
	Query   string   `json:"query"`
	Mode    Mode     `json:"mode"`
	Terms   []string `json:"terms,omitempty"`
	Results []Hit    `json:"results"`
}

type Executor struct {
	engine  *indexer.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	titles map[int]string
}

// New returns an executor over engine. docs supplies titles for results and
// may be nil; m may be nil.
func New(engine *indexer.Engine, docs []corpus.Document, m *metrics.Metrics) *Executor {
	e := &Executor{
		engine:  engine,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
	e.SetDocuments(docs)
	return e
}

// SetDocuments replaces the title lookup, typically after a reload.
func (e *Executor) SetDocuments(docs []corpus.Document) {
	titles := make(map[int]string, len(docs))
	for _, d := range docs {
		titles[d.ID] = d.Title
	}
	e.mu.Lock()
	e.titles = titles
	e.mu.Unlock()
}

func (e *Executor) Execute(ctx context.Context, req Request) (*SearchResult, error) {
	ctx, span := tracing.Start(ctx, "search-"+string(req.Mode))
	defer span.End()
	span.SetAttr("query", req.Query)

	result, err := e.execute(ctx, req)
	e.observe(req.Mode, result, err)
	if err != nil {
		span.SetAttr("error", err.Error())
		return nil, err
	}
	span.SetAttr("results", len(result.Results))
	e.logger.Debug("query executed",
		"mode", req.Mode,
		"query", req.Query,
		"terms", result.Terms,
		"results", len(result.Results),
	)
	return result, nil
}

func (e *Executor) execute(ctx context.Context, req Request) (*SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperrors.Errorf(apperrors.ErrInvalidParameter, "query is empty")
	}
	// Ranking and snippets read one version of the lexical tables even if a
	// reload lands mid-query.
	lexical := e.engine.Index().Snapshot()
	terms := e.engine.Index().Tokenizer().Tokenize(req.Query)
	result := &SearchResult{Query: req.Query, Mode: req.Mode, Terms: terms, Results: []Hit{}}

	switch req.Mode {
	case ModeKeyword:
		ranked, err := e.keyword(lexical, terms, req.Params, req.Limit)
		if err != nil {
			return nil, err
		}
		for _, d := range ranked {
			result.Results = append(result.Results, e.hit(lexical, d.DocID, d.Score))
		}
	case ModeSemantic:
		ranked, err := e.semantic(ctx, req.Query, req.Limit)
		if err != nil {
			return nil, err
		}
		for _, r := range ranked {
			h := e.hit(lexical, r.DocID, r.Score)
			best := r.BestChunk
			h.BestChunk = &best
			result.Results = append(result.Results, h)
		}
	case ModeHybrid:
		keyword, err := e.keyword(lexical, terms, req.Params, 0)
		if err != nil {
			return nil, err
		}
		sem, err := e.semantic(ctx, req.Query, 0)
		if err != nil {
			return nil, err
		}
		semDocs := make([]ranker.ScoredDoc, len(sem))
		for i, r := range sem {
			semDocs[i] = ranker.ScoredDoc{DocID: r.DocID, Score: r.Score}
		}
		hits, err := e.fuse(lexical, req, keyword, semDocs)
		if err != nil {
			return nil, err
		}
		result.Results = hits
	default:
		return nil, apperrors.Errorf(apperrors.ErrInvalidParameter, "unknown search mode %q", req.Mode)
	}
	return result, nil
}

func (e *Executor) fuse(lexical *index.Snapshot, req Request, keyword, sem []ranker.ScoredDoc) ([]Hit, error) {
	f, err := ParseFusion(string(req.Fusion))
	if err != nil {
		return nil, err
	}
	hits := []Hit{}
	if f == FusionWeighted {
		fused, err := fusion.WeightedFuse(keyword, sem, req.Alpha, req.Limit)
		if err != nil {
			return nil, err
		}
		for _, d := range fused {
			h := e.hit(lexical, d.DocID, d.Score)
			kw, sm := d.KeywordScore, d.SemanticScore
			h.KeywordScore, h.SemanticScore = &kw, &sm
			hits = append(hits, h)
		}
		return hits, nil
	}

	// RRF scores are rank based; the hit carries each side's raw score
	// when the document appeared on that side.
	raw := func(list []ranker.ScoredDoc) map[int]float64 {
		m := make(map[int]float64, len(list))
		for _, d := range list {
			m[d.DocID] = d.Score
		}
		return m
	}
	kwScores, smScores := raw(keyword), raw(sem)
	for _, d := range fusion.ReciprocalRank(req.RRFK, req.Limit, keyword, sem) {
		h := e.hit(lexical, d.DocID, d.Score)
		if s, ok := kwScores[d.DocID]; ok {
			h.KeywordScore = &s
		}
		if s, ok := smScores[d.DocID]; ok {
			h.SemanticScore = &s
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// keyword ranks by BM25. A query with no indexable terms matches nothing.
func (e *Executor) keyword(lexical *index.Snapshot, terms []string, p ranker.Params, limit int) ([]ranker.ScoredDoc, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return []ranker.ScoredDoc{}, nil
	}
	ranked, err := ranker.NewScorer(lexical).Rank(terms, p, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return ranked, nil
}

func (e *Executor) semantic(ctx context.Context, query string, limit int) ([]semantic.Result, error) {
	chunks := e.engine.Chunks()
	if chunks == nil {
		return nil, apperrors.Errorf(apperrors.ErrUnavailable, "semantic search is not configured")
	}
	results, err := chunks.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return results, nil
}

// hit decorates a ranked document. Semantic results may name documents the
// lexical tables do not hold (the two artifacts reload independently); those
// get no snippet.
func (e *Executor) hit(lexical *index.Snapshot, docID int, score float64) Hit {
	h := Hit{DocID: docID, Score: score}
	e.mu.RLock()
	h.Title = e.titles[docID]
	e.mu.RUnlock()
	text, err := lexical.DocText(docID)
	if err != nil {
		e.logger.Debug("no snippet for result", "doc_id", docID, "error", err)
		return h
	}
	h.Snippet = Snippet(text, snippetLength)
	return h
}

// Snippet returns the first n runes of text.
func Snippet(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}

func (e *Executor) observe(mode Mode, result *SearchResult, err error) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case len(result.Results) == 0:
		outcome = "zero_result"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(string(mode), outcome).Inc()
	if err == nil {
		e.metrics.SearchResultsCount.WithLabelValues(string(mode)).Observe(float64(len(result.Results)))
	}
}
