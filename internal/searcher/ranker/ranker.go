// Package ranker scores documents against query terms with classic TF-IDF
// and Okapi BM25, reading everything it needs from the inverted index.
package ranker

import (
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Index is the read side of the inverted index the scorer depends on.
type Index interface {
	DocCount() int
	DocFrequency(term string) int
	TermFrequency(docID int, term string) (int, error)
	DocLength(docID int) (int, error)
	AvgDocLength() float64
	Candidates(terms []string) []int
}

// Params are the BM25 saturation and length-normalisation knobs.
type Params struct {
	K1 float64 `json:"k1"`
	B  float64 `json:"b"`
}

func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB}
}

// Validate rejects parameter values outside the usual BM25 domain.
func (p Params) Validate() error {
	if p.K1 < 0 || math.IsNaN(p.K1) {
		return apperrors.Errorf(apperrors.ErrInvalidParameter, "k1 must be non-negative, got %v", p.K1)
	}
	if p.B < 0 || p.B > 1 || math.IsNaN(p.B) {
		return apperrors.Errorf(apperrors.ErrInvalidParameter, "b must be within [0, 1], got %v", p.B)
	}
	return nil
}

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Pinnable is an Index that can hand out a consistent view of itself.
// Scorer methods that read more than once use one view for the whole call,
// so a concurrent rebuild cannot mix two versions of the tables.
type Pinnable interface {
	Snapshot() *index.Snapshot
}

type Scorer struct {
	index Index
}

func NewScorer(ix Index) *Scorer {
	return &Scorer{index: ix}
}

func (s *Scorer) view() Index {
	if p, ok := s.index.(Pinnable); ok {
		return p.Snapshot()
	}
	return s.index
}

// IDF is ln((N+1)/(df+1)). Terms never seen have df = 0.
func (s *Scorer) IDF(term string) float64 {
	return idf(s.view(), term)
}

func idf(ix Index, term string) float64 {
	n := float64(ix.DocCount())
	df := float64(ix.DocFrequency(term))
	return math.Log((n + 1) / (df + 1))
}

// BM25IDF is ln((N-df+0.5)/(df+0.5) + 1). The +1 keeps it non-negative for
// every df up to N; it shrinks towards zero as a term becomes common.
func (s *Scorer) BM25IDF(term string) float64 {
	return bm25IDF(s.view(), term)
}

func bm25IDF(ix Index, term string) float64 {
	n := float64(ix.DocCount())
	df := float64(ix.DocFrequency(term))
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// BM25TF is the saturated, length-normalised term frequency of term in the
// document. An empty collection has no average length and yields
// ErrEmptyIndex.
func (s *Scorer) BM25TF(docID int, term string, p Params) (float64, error) {
	ix := s.view()
	return bm25TFOf(ix, docID, term, ix.AvgDocLength(), p)
}

func bm25TFOf(ix Index, docID int, term string, avg float64, p Params) (float64, error) {
	if avg <= 0 {
		return 0, apperrors.Errorf(apperrors.ErrEmptyIndex, "average document length is %v", avg)
	}
	tf, err := ix.TermFrequency(docID, term)
	if err != nil {
		return 0, err
	}
	length, err := ix.DocLength(docID)
	if err != nil {
		return 0, err
	}
	return bm25TF(float64(tf), float64(length), avg, p), nil
}

func bm25TF(tf, docLength, avgDocLength float64, p Params) float64 {
	lengthRatio := docLength / avgDocLength
	denominator := tf + p.K1*(1-p.B+p.B*lengthRatio)
	if denominator == 0 {
		return 0
	}
	return (tf * (p.K1 + 1)) / denominator
}

// BM25Score sums BM25IDF(t)*BM25TF(d, t) over terms. Terms absent from the
// document contribute zero.
func (s *Scorer) BM25Score(docID int, terms []string, p Params) (float64, error) {
	ix := s.view()
	return bm25Score(ix, docID, terms, ix.AvgDocLength(), p)
}

func bm25Score(ix Index, docID int, terms []string, avg float64, p Params) (float64, error) {
	var score float64
	for _, term := range terms {
		tf, err := bm25TFOf(ix, docID, term, avg, p)
		if err != nil {
			return 0, fmt.Errorf("scoring term %q: %w", term, err)
		}
		if tf == 0 {
			continue
		}
		score += bm25IDF(ix, term) * tf
	}
	return score, nil
}

// TFIDF is the raw term frequency times IDF.
func (s *Scorer) TFIDF(docID int, term string) (float64, error) {
	ix := s.view()
	tf, err := ix.TermFrequency(docID, term)
	if err != nil {
		return 0, err
	}
	return float64(tf) * idf(ix, term), nil
}

// Rank scores every document that contains at least one query term and
// returns the best limit of them, score descending then doc id ascending.
// A limit of zero or less returns all candidates.
func (s *Scorer) Rank(terms []string, p Params, limit int) ([]ScoredDoc, error) {
	ix := s.view()
	if ix.DocCount() == 0 {
		return nil, apperrors.Errorf(apperrors.ErrEmptyIndex, "no documents indexed")
	}
	avg := ix.AvgDocLength()
	candidates := ix.Candidates(terms)
	result := make([]ScoredDoc, 0, len(candidates))
	for _, docID := range candidates {
		score, err := bm25Score(ix, docID, terms, avg, p)
		if err != nil {
			return nil, fmt.Errorf("ranking document %d: %w", docID, err)
		}
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
