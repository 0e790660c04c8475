// Package fusion puts keyword and semantic scores on a common scale and
// combines them into one ranking.
package fusion

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

// DefaultRRFK is the usual reciprocal rank fusion constant.
const DefaultRRFK = 60

// MinMaxNormalize rescales scores to [0, 1] keeping order and length. When
// every score is equal, including a single score, each output is 1.0.
func MinMaxNormalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	if hi == lo {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

// Fused is one document's combined score with the normalised inputs that
// produced it. A document missing from one list scores 0 on that side.
type Fused struct {
	DocID         int     `json:"doc_id"`
	Score         float64 `json:"score"`
	KeywordScore  float64 `json:"keyword_score"`
	SemanticScore float64 `json:"semantic_score"`
}

// WeightedFuse min-max normalises each list, then scores every document as
// alpha*keyword + (1-alpha)*semantic. The best limit documents are returned,
// score descending then doc id ascending; limit <= 0 returns all of them.
func WeightedFuse(keyword, semantic []ranker.ScoredDoc, alpha float64, limit int) ([]Fused, error) {
	if alpha < 0 || alpha > 1 || math.IsNaN(alpha) {
		return nil, apperrors.Errorf(apperrors.ErrInvalidParameter, "alpha must be within [0, 1], got %v", alpha)
	}
	byID := make(map[int]*Fused, len(keyword)+len(semantic))
	entry := func(id int) *Fused {
		f, ok := byID[id]
		if !ok {
			f = &Fused{DocID: id}
			byID[id] = f
		}
		return f
	}
	for i, s := range MinMaxNormalize(scoresOf(keyword)) {
		entry(keyword[i].DocID).KeywordScore = s
	}
	for i, s := range MinMaxNormalize(scoresOf(semantic)) {
		entry(semantic[i].DocID).SemanticScore = s
	}

	all := make([]Fused, 0, len(byID))
	for _, f := range byID {
		f.Score = alpha*f.KeywordScore + (1-alpha)*f.SemanticScore
		all = append(all, *f)
	}
	return merger.TopK(all, limit, func(a, b Fused) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.DocID < b.DocID
	}), nil
}

// ReciprocalRank fuses ranked lists by summing 1/(k+rank) over the lists a
// document appears in, rank starting at 1. Lists must already be ranked
// best first. k <= 0 uses DefaultRRFK.
func ReciprocalRank(k int, limit int, lists ...[]ranker.ScoredDoc) []ranker.ScoredDoc {
	if k <= 0 {
		k = DefaultRRFK
	}
	scores := make(map[int]float64)
	for _, list := range lists {
		for rank, doc := range list {
			scores[doc.DocID] += 1 / float64(k+rank+1)
		}
	}
	all := make([]ranker.ScoredDoc, 0, len(scores))
	for id, s := range scores {
		all = append(all, ranker.ScoredDoc{DocID: id, Score: s})
	}
	return merger.TopK(all, limit, merger.ByScoreThenID)
}

func scoresOf(docs []ranker.ScoredDoc) []float64 {
	out := make([]float64, len(docs))
	for i, d := range docs {
		out[i] = d.Score
	}
	return out
}
