package merger

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/ranker"
)

func TestTopKMatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	docs := make([]ranker.ScoredDoc, 200)
	for i := range docs {
		// Coarse scores force plenty of ties.
		docs[i] = ranker.ScoredDoc{DocID: i, Score: float64(rng.Intn(20))}
	}
	sorted := append([]ranker.ScoredDoc(nil), docs...)
	sort.Slice(sorted, func(i, j int) bool { return ByScoreThenID(sorted[i], sorted[j]) })

	for _, k := range []int{1, 5, 37, 200, 500} {
		got := TopK(docs, k, ByScoreThenID)
		want := sorted[:min(k, len(sorted))]
		if len(got) != len(want) {
			t.Fatalf("k=%d: got %d items", k, len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("k=%d: position %d = %+v, want %+v", k, i, got[i], want[i])
			}
		}
	}
	if got := TopK(docs, 0, ByScoreThenID); len(got) != len(docs) {
		t.Errorf("limit 0 should keep all, got %d", len(got))
	}
	if got := TopK([]ranker.ScoredDoc{}, 3, ByScoreThenID); len(got) != 0 {
		t.Errorf("empty input gave %v", got)
	}
}

func TestMerge(t *testing.T) {
	a := []ranker.ScoredDoc{{DocID: 1, Score: 0.9}, {DocID: 2, Score: 0.5}}
	b := []ranker.ScoredDoc{{DocID: 2, Score: 0.7}, {DocID: 3, Score: 0.7}}
	got := Merge([][]ranker.ScoredDoc{a, b}, 10)
	want := []ranker.ScoredDoc{{DocID: 1, Score: 0.9}, {DocID: 2, Score: 0.7}, {DocID: 3, Score: 0.7}}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func BenchmarkTopK(b *testing.B) {
	docs := make([]ranker.ScoredDoc, 10000)
	for i := range docs {
		docs[i] = ranker.ScoredDoc{DocID: i, Score: float64(i%997) / 997}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		TopK(docs, 10, ByScoreThenID)
	}
}
