// Package merger selects the best k items from one or more scored lists
// with a bounded min-heap, so memory stays O(k) however many candidates
// are offered.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/ranker"
)

const defaultLimit = 10

// TopK returns the limit items that rank first under better, in ranked
// order. better(a, b) reports whether a ranks ahead of b and must be a
// strict total order for the output to be deterministic. A limit of zero or
// less returns every item, ranked.
func TopK[T any](items []T, limit int, better func(a, b T) bool) []T {
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	if limit == 0 {
		return []T{}
	}
	h := &boundedHeap[T]{better: better}
	for _, item := range items {
		if h.Len() < limit {
			heap.Push(h, item)
			continue
		}
		if better(item, h.items[0]) {
			h.items[0] = item
			heap.Fix(h, 0)
		}
	}
	result := make([]T, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(T)
	}
	return result
}

// Merge combines ranked lists into the overall best limit documents, score
// descending then doc id ascending. A document present in several lists
// keeps its highest score.
func Merge(lists [][]ranker.ScoredDoc, limit int) []ranker.ScoredDoc {
	if limit <= 0 {
		limit = defaultLimit
	}
	best := make(map[int]float64)
	for _, list := range lists {
		for _, doc := range list {
			if s, ok := best[doc.DocID]; !ok || doc.Score > s {
				best[doc.DocID] = doc.Score
			}
		}
	}
	all := make([]ranker.ScoredDoc, 0, len(best))
	for id, score := range best {
		all = append(all, ranker.ScoredDoc{DocID: id, Score: score})
	}
	return TopK(all, limit, ByScoreThenID)
}

// ByScoreThenID orders higher scores first and breaks ties on the lower
// document id.
func ByScoreThenID(a, b ranker.ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// boundedHeap keeps the worst retained item at the root.
type boundedHeap[T any] struct {
	items  []T
	better func(a, b T) bool
}

func (h boundedHeap[T]) Len() int { return len(h.items) }

func (h boundedHeap[T]) Less(i, j int) bool { return h.better(h.items[j], h.items[i]) }

func (h boundedHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *boundedHeap[T]) Push(x any) {
	h.items = append(h.items, x.(T))
}

func (h *boundedHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
