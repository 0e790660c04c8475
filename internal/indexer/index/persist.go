package index

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

// snapshot is the persisted form of the four tables.
type snapshot struct {
	Postings   map[string][]int       `json:"postings"`
	DocTexts   map[int]string         `json:"doc_texts"`
	TermFreqs  map[int]map[string]int `json:"term_frequencies"`
	DocLengths map[int]int            `json:"doc_lengths"`
}

// Save writes all four tables to path as a single segment.
func (ix *InvertedIndex) Save(path string) error {
	t := ix.Snapshot().t
	snap := snapshot{
		Postings:   make(map[string][]int, len(t.postings)),
		DocTexts:   t.docTexts,
		TermFreqs:  t.termFreqs,
		DocLengths: t.docLengths,
	}
	for term, set := range t.postings {
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		snap.Postings[term] = ids
	}
	if err := segment.Write(path, segment.KindLexical, snap); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}
	ix.logger.Info("index saved", "path", path, "documents", len(snap.DocLengths), "terms", len(snap.Postings))
	return nil
}

// Load replaces the index contents with the tables stored at path. A
// missing, unreadable or inconsistent file returns ErrCacheCorruption and
// leaves the current tables untouched.
func (ix *InvertedIndex) Load(path string) error {
	var snap snapshot
	if _, err := segment.Read(path, segment.KindLexical, &snap); err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	next, err := snap.toTables()
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	ix.mu.Lock()
	ix.tables = next
	ix.mu.Unlock()
	ix.logger.Info("index loaded", "path", path, "documents", len(next.docLengths), "terms", len(next.postings))
	return nil
}

// toTables validates the snapshot's cross-table invariants and converts it
// into live tables.
func (s snapshot) toTables() (*tables, error) {
	t := newTables()
	if s.DocTexts != nil {
		t.docTexts = s.DocTexts
	}
	if s.DocLengths != nil {
		t.docLengths = s.DocLengths
	}
	if s.TermFreqs != nil {
		t.termFreqs = s.TermFreqs
	}
	if len(t.docLengths) != len(t.termFreqs) || len(t.docLengths) != len(t.docTexts) {
		return nil, apperrors.Errorf(apperrors.ErrCacheCorruption,
			"table sizes disagree: %d lengths, %d frequency rows, %d texts",
			len(t.docLengths), len(t.termFreqs), len(t.docTexts))
	}
	for id, length := range t.docLengths {
		row, ok := t.termFreqs[id]
		if !ok {
			return nil, apperrors.Errorf(apperrors.ErrCacheCorruption, "document %d has no frequency row", id)
		}
		if _, ok := t.docTexts[id]; !ok {
			return nil, apperrors.Errorf(apperrors.ErrCacheCorruption, "document %d has no text", id)
		}
		sum := 0
		for _, n := range row {
			sum += n
		}
		if sum != length {
			return nil, apperrors.Errorf(apperrors.ErrCacheCorruption,
				"document %d length %d does not match frequency total %d", id, length, sum)
		}
	}
	for term, ids := range s.Postings {
		set := make(map[int]struct{}, len(ids))
		for _, id := range ids {
			if t.termFreqs[id][term] == 0 {
				return nil, apperrors.Errorf(apperrors.ErrCacheCorruption,
					"posting for %q lists document %d which does not contain it", term, id)
			}
			set[id] = struct{}{}
		}
		t.postings[term] = set
	}
	for id, row := range t.termFreqs {
		for term, n := range row {
			if n <= 0 {
				return nil, apperrors.Errorf(apperrors.ErrCacheCorruption,
					"document %d has non-positive frequency %d for %q", id, n, term)
			}
			if _, ok := t.postings[term][id]; !ok {
				return nil, apperrors.Errorf(apperrors.ErrCacheCorruption,
					"document %d contains %q but is missing from its posting", id, term)
			}
		}
	}
	return t, nil
}
