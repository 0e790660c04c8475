package ranker

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

const epsilon = 1e-9

func buildIndex(t *testing.T, docs []corpus.Document) *index.InvertedIndex {
	t.Helper()
	ix := index.New(tokenizer.New([]string{"the", "on", "a"}, tokenizer.IdentityStemmer), 2)
	if err := ix.Build(context.Background(), docs); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

func catDog(t *testing.T) *Scorer {
	return NewScorer(buildIndex(t, []corpus.Document{
		{ID: 1, Description: "The cat sat on the mat."},
		{ID: 2, Description: "The dog sat on the rug."},
	}))
}

func TestIDF(t *testing.T) {
	s := catDog(t)
	tests := []struct {
		term string
		want float64
	}{
		{"cat", math.Log(3.0 / 2.0)},
		{"sat", math.Log(3.0 / 3.0)},
		{"zebra", math.Log(3.0 / 1.0)},
	}
	for _, tt := range tests {
		if got := s.IDF(tt.term); math.Abs(got-tt.want) > epsilon {
			t.Errorf("IDF(%q) = %v, want %v", tt.term, got, tt.want)
		}
	}
}

func TestBM25IDFNonIncreasingInDocFrequency(t *testing.T) {
	// term tK appears in exactly K documents; t0 appears in none.
	docs := []corpus.Document{
		{ID: 0, Description: "t1 t2 t3 t4 t5"},
		{ID: 1, Description: "t2 t3 t4 t5"},
		{ID: 2, Description: "t3 t4 t5"},
		{ID: 3, Description: "t4 t5"},
		{ID: 4, Description: "t5"},
	}
	s := NewScorer(buildIndex(t, docs))
	prev := s.BM25IDF("t0")
	for _, term := range []string{"t1", "t2", "t3", "t4", "t5"} {
		cur := s.BM25IDF(term)
		if cur > prev+epsilon {
			t.Errorf("BM25IDF(%q) = %v increased from %v", term, cur, prev)
		}
		prev = cur
	}
	want := math.Log((5-5+0.5)/(5+0.5) + 1)
	if got := s.BM25IDF("t5"); math.Abs(got-want) > epsilon {
		t.Errorf("BM25IDF(t5) = %v, want %v", got, want)
	}
}

func TestBM25TF(t *testing.T) {
	s := catDog(t)
	got, err := s.BM25TF(1, "cat", DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	// tf=1, len=avg=3: 1*2.5 / (1 + 1.5*1) = 1.
	if math.Abs(got-1) > epsilon {
		t.Errorf("BM25TF = %v, want 1", got)
	}
	zero, err := s.BM25TF(2, "cat", DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if zero != 0 {
		t.Errorf("absent term BM25TF = %v, want 0", zero)
	}
	if _, err := s.BM25TF(99, "cat", DefaultParams()); !errors.Is(err, apperrors.ErrUnknownDocument) {
		t.Errorf("unknown doc err = %v", err)
	}
}

func TestBM25TFLengthNormalisation(t *testing.T) {
	s := NewScorer(buildIndex(t, []corpus.Document{
		{ID: 1, Description: "fox"},
		{ID: 2, Description: "fox hen hen hen hen"},
	}))
	short, _ := s.BM25TF(1, "fox", DefaultParams())
	long, _ := s.BM25TF(2, "fox", DefaultParams())
	if short <= long {
		t.Errorf("shorter document should score higher: short=%v long=%v", short, long)
	}
	flatShort, _ := s.BM25TF(1, "fox", Params{K1: 1.5, B: 0})
	flatLong, _ := s.BM25TF(2, "fox", Params{K1: 1.5, B: 0})
	if math.Abs(flatShort-flatLong) > epsilon {
		t.Errorf("b=0 should ignore length: %v vs %v", flatShort, flatLong)
	}
}

func TestEmptyIndex(t *testing.T) {
	s := NewScorer(buildIndex(t, nil))
	if _, err := s.BM25TF(1, "cat", DefaultParams()); !errors.Is(err, apperrors.ErrEmptyIndex) {
		t.Errorf("BM25TF err = %v, want ErrEmptyIndex", err)
	}
	if _, err := s.Rank([]string{"cat"}, DefaultParams(), 5); !errors.Is(err, apperrors.ErrEmptyIndex) {
		t.Errorf("Rank err = %v, want ErrEmptyIndex", err)
	}
	if got := s.IDF("cat"); got != 0 {
		t.Errorf("IDF on empty index = %v, want 0", got)
	}
}

func TestTFIDFZeroWhenTermAbsent(t *testing.T) {
	s := catDog(t)
	for _, term := range []string{"dog", "rug", "zebra"} {
		got, err := s.TFIDF(1, term)
		if err != nil {
			t.Fatal(err)
		}
		if got != 0 {
			t.Errorf("TFIDF(1, %q) = %v, want 0", term, got)
		}
	}
	got, err := s.TFIDF(1, "cat")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-math.Log(1.5)) > epsilon {
		t.Errorf("TFIDF(1, cat) = %v", got)
	}
}

func TestBM25Score(t *testing.T) {
	s := catDog(t)
	p := DefaultParams()
	got, err := s.BM25Score(1, []string{"cat", "sat", "zebra"}, p)
	if err != nil {
		t.Fatal(err)
	}
	catTF, _ := s.BM25TF(1, "cat", p)
	satTF, _ := s.BM25TF(1, "sat", p)
	want := s.BM25IDF("cat")*catTF + s.BM25IDF("sat")*satTF
	if math.Abs(got-want) > epsilon {
		t.Errorf("BM25Score = %v, want %v", got, want)
	}
}

func TestRank(t *testing.T) {
	s := NewScorer(buildIndex(t, []corpus.Document{
		{ID: 4, Description: "A bear."},
		{ID: 2, Description: "The bear and the wolf."},
		{ID: 9, Description: "A wolf howls at night."},
		{ID: 1, Description: "Nothing relevant here."},
	}))
	results, err := s.Rank([]string{"bear"}, DefaultParams(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].DocID != 4 || results[1].DocID != 2 {
		t.Errorf("unexpected order %+v", results)
	}

	tied, err := s.Rank([]string{"bear", "wolf"}, DefaultParams(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(tied) != 2 {
		t.Fatalf("limit not applied: %+v", tied)
	}
	for i := 1; i < len(tied); i++ {
		if tied[i-1].Score < tied[i].Score {
			t.Errorf("results not sorted by score: %+v", tied)
		}
	}
}

func TestRankTieBreaksOnDocID(t *testing.T) {
	s := NewScorer(buildIndex(t, []corpus.Document{
		{ID: 8, Description: "owl"},
		{ID: 3, Description: "owl"},
		{ID: 5, Description: "owl"},
	}))
	results, err := s.Rank([]string{"owl"}, DefaultParams(), 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{3, 5, 8}
	for i, r := range results {
		if r.DocID != want[i] {
			t.Fatalf("order = %+v, want ids %v", results, want)
		}
	}
}

func TestRankDuringRebuild(t *testing.T) {
	ix := buildIndex(t, nil)
	versions := [][]corpus.Document{
		{{ID: 1, Description: "cat sat"}, {ID: 2, Description: "cat cat dog"}},
		{{ID: 3, Description: "cat"}, {ID: 4, Description: "cat bird bird bird"}},
	}
	if err := ix.Build(context.Background(), versions[0]); err != nil {
		t.Fatal(err)
	}
	s := NewScorer(ix)

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		for i := 0; ; i++ {
			select {
			case <-stop:
				done <- nil
				return
			default:
			}
			if err := ix.Build(context.Background(), versions[i%2]); err != nil {
				done <- err
				return
			}
		}
	}()

	for i := 0; i < 20000; i++ {
		results, err := s.Rank([]string{"cat"}, DefaultParams(), 10)
		if err != nil {
			close(stop)
			<-done
			t.Fatalf("rank %d during rebuild: %v", i, err)
		}
		if len(results) != 2 {
			t.Fatalf("rank %d returned %d results, want 2", i, len(results))
		}
		ids := []int{results[0].DocID, results[1].DocID}
		sameVersion := (ids[0] <= 2 && ids[1] <= 2) || (ids[0] >= 3 && ids[1] >= 3)
		if !sameVersion {
			t.Fatalf("rank %d mixed versions: %+v", i, results)
		}
	}
	close(stop)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestScorerOverSnapshot(t *testing.T) {
	ix := buildIndex(t, []corpus.Document{
		{ID: 1, Description: "cat sat"},
		{ID: 2, Description: "dog sat"},
	})
	pinned := NewScorer(ix.Snapshot())
	if err := ix.Build(context.Background(), []corpus.Document{{ID: 9, Description: "cat"}}); err != nil {
		t.Fatal(err)
	}
	results, err := pinned.Rank([]string{"cat"}, DefaultParams(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].DocID != 1 {
		t.Errorf("pinned rank = %+v, want doc 1 only", results)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	for _, p := range []Params{{K1: -1, B: 0.5}, {K1: 1, B: 1.5}, {K1: 1, B: -0.1}} {
		if err := p.Validate(); !errors.Is(err, apperrors.ErrInvalidParameter) {
			t.Errorf("Validate(%+v) = %v", p, err)
		}
	}
}
