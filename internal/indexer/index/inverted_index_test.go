package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

func catDogIndex(t *testing.T) *InvertedIndex {
	t.Helper()
	ix := New(tokenizer.New([]string{"the", "on"}, tokenizer.IdentityStemmer), 2)
	docs := []corpus.Document{
		{ID: 1, Title: "", Description: "The cat sat on the mat."},
		{ID: 2, Title: "", Description: "The dog sat on the rug."},
	}
	if err := ix.Build(context.Background(), docs); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

func sampleCorpus() []corpus.Document {
	return []corpus.Document{
		{ID: 10, Title: "Alien", Description: "A crew meets an alien on a ship. The alien hunts them."},
		{ID: 3, Title: "Jaws", Description: "A shark terrorizes a beach town."},
		{ID: 7, Title: "Aliens", Description: "Marines return to fight aliens."},
		{ID: 0, Title: "Empty", Description: ""},
		{ID: 42, Title: "Ship of Fools", Description: "A ship full of fools sails on."},
	}
}

func TestGetDocumentsCatDog(t *testing.T) {
	ix := catDogIndex(t)
	if got := ix.GetDocuments("cat"); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("GetDocuments(cat) = %v, want [1]", got)
	}
	if got := ix.GetDocuments("sat"); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("GetDocuments(sat) = %v, want [1 2]", got)
	}
	if got := ix.GetDocuments("SAT"); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("lookup should be case-insensitive, got %v", got)
	}
	if got := ix.GetDocuments("unicorn"); got == nil || len(got) != 0 {
		t.Errorf("unknown term should give empty non-nil slice, got %#v", got)
	}
	if got := ix.GetDocuments("the"); len(got) != 0 {
		t.Errorf("stop word should not be indexed, got %v", got)
	}
}

func TestPostingsMatchTokenizedText(t *testing.T) {
	tok := tokenizer.New(tokenizer.DefaultStopWords, tokenizer.SuffixStemmer)
	ix := New(tok, 3)
	docs := sampleCorpus()
	if err := ix.Build(context.Background(), docs); err != nil {
		t.Fatal(err)
	}

	expected := make(map[string]map[int]struct{})
	for _, d := range docs {
		for _, term := range tok.Tokenize(d.Text()) {
			if expected[term] == nil {
				expected[term] = make(map[int]struct{})
			}
			expected[term][d.ID] = struct{}{}
		}
	}
	if ix.TermCount() != len(expected) {
		t.Errorf("TermCount = %d, want %d", ix.TermCount(), len(expected))
	}
	for term, set := range expected {
		want := make([]int, 0, len(set))
		for id := range set {
			want = append(want, id)
		}
		sort.Ints(want)
		got := ix.GetDocuments(term)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("GetDocuments(%q) = %v, want %v", term, got, want)
		}
		for i := 1; i < len(got); i++ {
			if got[i-1] >= got[i] {
				t.Errorf("GetDocuments(%q) not strictly ascending: %v", term, got)
			}
		}
		if ix.DocFrequency(term) != len(want) {
			t.Errorf("DocFrequency(%q) = %d, want %d", term, ix.DocFrequency(term), len(want))
		}
	}
}

func TestDocLengthsMatchTermFrequencies(t *testing.T) {
	tok := tokenizer.New(tokenizer.DefaultStopWords, tokenizer.SuffixStemmer)
	ix := New(tok, 0)
	if err := ix.Build(context.Background(), sampleCorpus()); err != nil {
		t.Fatal(err)
	}
	for _, id := range ix.DocIDs() {
		length, err := ix.DocLength(id)
		if err != nil {
			t.Fatal(err)
		}
		sum := 0
		for _, term := range tok.Tokenize(mustText(t, ix, id)) {
			tf, err := ix.TermFrequency(id, term)
			if err != nil {
				t.Fatal(err)
			}
			if tf == 0 {
				t.Errorf("doc %d: term %q has zero frequency", id, term)
			}
			sum++
		}
		if sum != length {
			t.Errorf("doc %d: length %d, token total %d", id, length, sum)
		}
	}
	if n, _ := ix.DocLength(0); n != 1 {
		t.Errorf("doc 0 should contain only its title token, got length %d", n)
	}
}

func mustText(t *testing.T, ix *InvertedIndex, id int) string {
	t.Helper()
	text, err := ix.DocText(id)
	if err != nil {
		t.Fatal(err)
	}
	return text
}

func TestTermFrequency(t *testing.T) {
	ix := catDogIndex(t)
	tests := []struct {
		name    string
		docID   int
		term    string
		want    int
		wantErr error
	}{
		{"present", 1, "cat", 1, nil},
		{"case folded", 1, "CAT", 1, nil},
		{"absent from doc", 2, "cat", 0, nil},
		{"never seen", 1, "zebra", 0, nil},
		{"multi word", 1, "cat mat", 0, apperrors.ErrInvalidParameter},
		{"tab separated", 1, "cat\tmat", 0, apperrors.ErrInvalidParameter},
		{"unknown doc", 99, "cat", 0, apperrors.ErrUnknownDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ix.TermFrequency(tt.docID, tt.term)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("TermFrequency = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildRejectsDuplicatesAndKeepsPriorState(t *testing.T) {
	ix := catDogIndex(t)
	err := ix.Build(context.Background(), []corpus.Document{
		{ID: 5, Description: "bird"},
		{ID: 5, Description: "fish"},
	})
	if !errors.Is(err, apperrors.ErrDuplicateDocument) {
		t.Fatalf("err = %v, want ErrDuplicateDocument", err)
	}
	if got := ix.GetDocuments("cat"); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("prior tables should survive a failed build, got %v", got)
	}
	if ix.DocCount() != 2 {
		t.Errorf("DocCount = %d, want 2", ix.DocCount())
	}
}

func TestBuildReplacesPriorTables(t *testing.T) {
	ix := catDogIndex(t)
	if err := ix.Build(context.Background(), []corpus.Document{{ID: 9, Description: "A bird sat."}}); err != nil {
		t.Fatal(err)
	}
	if got := ix.GetDocuments("cat"); len(got) != 0 {
		t.Errorf("stale posting survived rebuild: %v", got)
	}
	if got := ix.GetDocuments("sat"); !reflect.DeepEqual(got, []int{9}) {
		t.Errorf("GetDocuments(sat) = %v, want [9]", got)
	}
	if _, err := ix.DocLength(1); !errors.Is(err, apperrors.ErrUnknownDocument) {
		t.Errorf("old document should be gone, err = %v", err)
	}
}

func TestBuildCancelled(t *testing.T) {
	ix := catDogIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ix.Build(ctx, sampleCorpus()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if ix.DocCount() != 2 {
		t.Errorf("cancelled build must not replace tables")
	}
}

func TestAvgDocLength(t *testing.T) {
	empty := New(tokenizer.New(nil, nil), 1)
	if empty.AvgDocLength() != 0 {
		t.Errorf("empty index average = %v, want 0", empty.AvgDocLength())
	}
	ix := catDogIndex(t)
	if got := ix.AvgDocLength(); got != 3 {
		t.Errorf("AvgDocLength = %v, want 3", got)
	}
}

func TestCandidates(t *testing.T) {
	ix := catDogIndex(t)
	if got := ix.Candidates([]string{"cat", "rug", "zebra"}); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Candidates = %v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tok := tokenizer.New(tokenizer.DefaultStopWords, tokenizer.SuffixStemmer)
	ix := New(tok, 2)
	if err := ix.Build(context.Background(), sampleCorpus()); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "index.seg")
	if err := ix.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := New(tok, 2)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(ix.tables, loaded.tables) {
		t.Errorf("loaded tables differ from saved tables")
	}
	if loaded.AvgDocLength() != ix.AvgDocLength() {
		t.Errorf("AvgDocLength differs after load")
	}
}

func TestLoadFailureLeavesIndexUntouched(t *testing.T) {
	ix := catDogIndex(t)
	dir := t.TempDir()

	if err := ix.Load(filepath.Join(dir, "missing.seg")); !errors.Is(err, apperrors.ErrCacheCorruption) {
		t.Fatalf("missing file: err = %v, want ErrCacheCorruption", err)
	}

	garbage := filepath.Join(dir, "garbage.seg")
	if err := os.WriteFile(garbage, []byte("not a segment at all, just text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ix.Load(garbage); !errors.Is(err, apperrors.ErrCacheCorruption) {
		t.Fatalf("garbage file: err = %v, want ErrCacheCorruption", err)
	}

	inconsistent := filepath.Join(dir, "inconsistent.seg")
	bad := snapshot{
		Postings:   map[string][]int{"cat": {1}},
		DocTexts:   map[int]string{1: "cat"},
		TermFreqs:  map[int]map[string]int{1: {"cat": 1}},
		DocLengths: map[int]int{1: 5},
	}
	if err := segment.Write(inconsistent, segment.KindLexical, bad); err != nil {
		t.Fatal(err)
	}
	if err := ix.Load(inconsistent); !errors.Is(err, apperrors.ErrCacheCorruption) {
		t.Fatalf("inconsistent file: err = %v, want ErrCacheCorruption", err)
	}

	if got := ix.GetDocuments("sat"); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("index changed after failed loads: %v", got)
	}

	fresh := New(tokenizer.New(nil, nil), 1)
	if err := fresh.Load(garbage); err == nil {
		t.Fatal("expected error")
	}
	if fresh.DocCount() != 0 {
		t.Errorf("fresh index should stay empty after failed load")
	}
}

func TestLoadRejectsMissingPosting(t *testing.T) {
	ix := catDogIndex(t)
	path := filepath.Join(t.TempDir(), "unposted.seg")
	// dog is counted for document 2 but has no posting.
	bad := snapshot{
		Postings:   map[string][]int{"cat": {1}},
		DocTexts:   map[int]string{1: "cat", 2: "dog"},
		TermFreqs:  map[int]map[string]int{1: {"cat": 1}, 2: {"dog": 1}},
		DocLengths: map[int]int{1: 1, 2: 1},
	}
	if err := segment.Write(path, segment.KindLexical, bad); err != nil {
		t.Fatal(err)
	}
	if err := ix.Load(path); !errors.Is(err, apperrors.ErrCacheCorruption) {
		t.Fatalf("err = %v, want ErrCacheCorruption", err)
	}
	if got := ix.GetDocuments("dog"); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("index changed after failed load: %v", got)
	}
}

func TestSnapshotSurvivesRebuild(t *testing.T) {
	ix := catDogIndex(t)
	snap := ix.Snapshot()

	docs := []corpus.Document{{ID: 3, Description: "A bird sang."}}
	if err := ix.Build(context.Background(), docs); err != nil {
		t.Fatal(err)
	}

	if got := snap.GetDocuments("cat"); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("pinned GetDocuments(cat) = %v", got)
	}
	if _, err := snap.DocText(3); !errors.Is(err, apperrors.ErrUnknownDocument) {
		t.Errorf("pinned view sees new document: %v", err)
	}
	if snap.DocCount() != 2 || ix.DocCount() != 1 {
		t.Errorf("DocCount pinned=%d live=%d, want 2 and 1", snap.DocCount(), ix.DocCount())
	}
}

func TestConcurrentReadsDuringRebuild(t *testing.T) {
	ix := catDogIndex(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := ix.GetDocuments("sat")
				if len(got) == 0 {
					t.Error("sat should always be present")
					return
				}
				_ = ix.AvgDocLength()
			}
		}()
	}
	for i := 0; i < 20; i++ {
		docs := []corpus.Document{
			{ID: 1, Description: fmt.Sprintf("The cat sat %d times.", i)},
			{ID: 2, Description: "The dog sat."},
		}
		if err := ix.Build(context.Background(), docs); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
}

func BenchmarkBuild(b *testing.B) {
	tok := tokenizer.New(tokenizer.DefaultStopWords, tokenizer.SuffixStemmer)
	docs := make([]corpus.Document, 2000)
	for i := range docs {
		docs[i] = corpus.Document{
			ID:          i,
			Title:       fmt.Sprintf("title %d", i),
			Description: "search engine with distributed indexing and query processing across many documents",
		}
	}
	ix := New(tok, 8)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := ix.Build(context.Background(), docs); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGetDocumentsParallel(b *testing.B) {
	tok := tokenizer.New(tokenizer.DefaultStopWords, tokenizer.SuffixStemmer)
	docs := make([]corpus.Document, 5000)
	for i := range docs {
		docs[i] = corpus.Document{ID: i, Description: "distributed search engine"}
	}
	ix := New(tok, 8)
	if err := ix.Build(context.Background(), docs); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = ix.GetDocuments("search")
		}
	})
}
