// Package index holds the lexical inverted index: posting sets, per-document
// term-frequency rows, document lengths and document texts. The index is
// built from a whole collection at once and replaced wholesale on rebuild.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

const defaultWorkers = 4

// InvertedIndex is safe for concurrent readers. Build and Load publish a
// fresh set of tables under the write lock and never modify published ones.
// Each single read sees either the old or the new tables; readers that need
// several reads to agree use Snapshot.
type InvertedIndex struct {
	mu        sync.RWMutex
	tokenizer *tokenizer.Tokenizer
	workers   int
	tables    *tables
	logger    *slog.Logger
}

// tables is the unit that is built, persisted and swapped together.
type tables struct {
	postings   map[string]map[int]struct{}
	docTexts   map[int]string
	termFreqs  map[int]map[string]int
	docLengths map[int]int
}

func newTables() *tables {
	return &tables{
		postings:   make(map[string]map[int]struct{}),
		docTexts:   make(map[int]string),
		termFreqs:  make(map[int]map[string]int),
		docLengths: make(map[int]int),
	}
}

// New returns an empty index. workers bounds how many documents are
// tokenized concurrently during Build; values below one use a default.
func New(tok *tokenizer.Tokenizer, workers int) *InvertedIndex {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &InvertedIndex{
		tokenizer: tok,
		workers:   workers,
		tables:    newTables(),
		logger:    slog.Default().With("component", "inverted-index"),
	}
}

// Tokenizer returns the tokenizer the index was built with, so queries can
// be normalised the same way as documents.
func (ix *InvertedIndex) Tokenizer() *tokenizer.Tokenizer {
	return ix.tokenizer
}

// docContribution is one document's share of the tables, computed
// independently of every other document.
type docContribution struct {
	id       int
	text     string
	termFreq map[string]int
	length   int
}

// Build replaces the index contents with the given documents. Documents are
// tokenized concurrently; their contributions are merged serially. On any
// error the previous tables stay in place.
func (ix *InvertedIndex) Build(ctx context.Context, docs []corpus.Document) error {
	seen := make(map[int]struct{}, len(docs))
	for _, d := range docs {
		if d.ID < 0 {
			return apperrors.Errorf(apperrors.ErrInvalidParameter, "document id %d is negative", d.ID)
		}
		if _, dup := seen[d.ID]; dup {
			return apperrors.Errorf(apperrors.ErrDuplicateDocument, "document id %d submitted twice", d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	contributions := make([]docContribution, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, d := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text := d.Text()
			terms := ix.tokenizer.Tokenize(text)
			tf := make(map[string]int, len(terms))
			for _, term := range terms {
				tf[term]++
			}
			contributions[i] = docContribution{
				id:       d.ID,
				text:     text,
				termFreq: tf,
				length:   len(terms),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("tokenizing documents: %w", err)
	}

	next := newTables()
	for _, c := range contributions {
		next.docTexts[c.id] = c.text
		next.termFreqs[c.id] = c.termFreq
		next.docLengths[c.id] = c.length
		for term := range c.termFreq {
			set, ok := next.postings[term]
			if !ok {
				set = make(map[int]struct{})
				next.postings[term] = set
			}
			set[c.id] = struct{}{}
		}
	}

	ix.mu.Lock()
	ix.tables = next
	ix.mu.Unlock()

	ix.logger.Info("index built",
		"documents", len(next.docLengths),
		"terms", len(next.postings),
	)
	return nil
}

// Snapshot pins the current version of the tables. Build and Load never
// mutate published tables, so the view stays consistent for as long as the
// caller holds it; a computation that makes several reads should take one
// Snapshot and read only through it.
func (ix *InvertedIndex) Snapshot() *Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return &Snapshot{t: ix.tables}
}

func (ix *InvertedIndex) GetDocuments(term string) []int { return ix.Snapshot().GetDocuments(term) }

func (ix *InvertedIndex) DocFrequency(term string) int { return ix.Snapshot().DocFrequency(term) }

func (ix *InvertedIndex) TermFrequency(docID int, term string) (int, error) {
	return ix.Snapshot().TermFrequency(docID, term)
}

func (ix *InvertedIndex) DocLength(docID int) (int, error) { return ix.Snapshot().DocLength(docID) }

func (ix *InvertedIndex) DocText(docID int) (string, error) { return ix.Snapshot().DocText(docID) }

func (ix *InvertedIndex) DocCount() int { return ix.Snapshot().DocCount() }

func (ix *InvertedIndex) TermCount() int { return ix.Snapshot().TermCount() }

func (ix *InvertedIndex) AvgDocLength() float64 { return ix.Snapshot().AvgDocLength() }

func (ix *InvertedIndex) DocIDs() []int { return ix.Snapshot().DocIDs() }

func (ix *InvertedIndex) Candidates(terms []string) []int { return ix.Snapshot().Candidates(terms) }

// Snapshot is a read-only view of one version of the index tables.
type Snapshot struct {
	t *tables
}

// GetDocuments returns the ids of documents containing term, ascending.
// The lookup key is lower-cased; unknown terms yield an empty slice.
func (s *Snapshot) GetDocuments(term string) []int {
	set := s.t.postings[strings.ToLower(term)]
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// DocFrequency is the size of term's posting set; zero for unseen terms.
func (s *Snapshot) DocFrequency(term string) int {
	return len(s.t.postings[strings.ToLower(term)])
}

// TermFrequency returns how often term occurs in the document. term must be
// a single word.
func (s *Snapshot) TermFrequency(docID int, term string) (int, error) {
	term = strings.TrimSpace(term)
	if strings.ContainsFunc(term, unicode.IsSpace) {
		return 0, apperrors.Errorf(apperrors.ErrInvalidParameter, "term %q must be a single word", term)
	}
	tf, ok := s.t.termFreqs[docID]
	if !ok {
		return 0, apperrors.Errorf(apperrors.ErrUnknownDocument, "document %d is not indexed", docID)
	}
	return tf[strings.ToLower(term)], nil
}

// DocLength returns the document's normalised token count.
func (s *Snapshot) DocLength(docID int) (int, error) {
	n, ok := s.t.docLengths[docID]
	if !ok {
		return 0, apperrors.Errorf(apperrors.ErrUnknownDocument, "document %d is not indexed", docID)
	}
	return n, nil
}

// DocText returns the concatenated title and description indexed for docID.
func (s *Snapshot) DocText(docID int) (string, error) {
	text, ok := s.t.docTexts[docID]
	if !ok {
		return "", apperrors.Errorf(apperrors.ErrUnknownDocument, "document %d is not indexed", docID)
	}
	return text, nil
}

// DocCount is the number of indexed documents.
func (s *Snapshot) DocCount() int {
	return len(s.t.docLengths)
}

// TermCount is the number of distinct terms.
func (s *Snapshot) TermCount() int {
	return len(s.t.postings)
}

// AvgDocLength is the mean document length, or 0 for an empty index.
func (s *Snapshot) AvgDocLength() float64 {
	if len(s.t.docLengths) == 0 {
		return 0
	}
	total := 0
	for _, n := range s.t.docLengths {
		total += n
	}
	return float64(total) / float64(len(s.t.docLengths))
}

// DocIDs returns every indexed document id, ascending.
func (s *Snapshot) DocIDs() []int {
	ids := make([]int, 0, len(s.t.docLengths))
	for id := range s.t.docLengths {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Candidates returns the ascending union of the posting sets of terms.
func (s *Snapshot) Candidates(terms []string) []int {
	union := make(map[int]struct{})
	for _, term := range terms {
		for id := range s.t.postings[strings.ToLower(term)] {
			union[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(union))
	for id := range union {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
