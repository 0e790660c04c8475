package tokenizer

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tok := New([]string{"the", "on"}, nil)
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"sentence", "The cat sat on the mat.", []string{"cat", "sat", "mat"}},
		{"punctuation is stripped not split", "Don't stop-me now!", []string{"dont", "stopme", "now"}},
		{"mixed case", "CAT Cat cAt", []string{"cat", "cat", "cat"}},
		{"empty", "", []string{}},
		{"all stop words", "The on THE", []string{}},
		{"whitespace only", " \t\n ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizeUsesStemmer(t *testing.T) {
	upper := StemmerFunc(func(w string) string { return w + "_x" })
	tok := New(nil, upper)
	got := tok.Tokenize("running dogs")
	want := []string{"running_x", "dogs_x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	tok := New(DefaultStopWords, SuffixStemmer)
	text := "Searching the indexed documents quickly, with ranking."
	first := tok.Tokenize(text)
	for i := 0; i < 10; i++ {
		if got := tok.Tokenize(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}
}

func TestNormalizeTerm(t *testing.T) {
	tok := New([]string{"the"}, SuffixStemmer)
	if got := tok.NormalizeTerm("The"); got != "the" {
		t.Errorf("NormalizeTerm keeps stop words, got %q", got)
	}
	if got := tok.NormalizeTerm("Running!"); got != "runn" {
		t.Errorf("NormalizeTerm(Running!) = %q", got)
	}
	if got := tok.NormalizeTerm("..."); got != "" {
		t.Errorf("NormalizeTerm(...) = %q, want empty", got)
	}
}

func TestSuffixStemmer(t *testing.T) {
	cases := map[string]string{
		"relational": "relate",
		"ponies":     "pony",
		"cats":       "cat",
		"is":         "is",
		"class":      "class",
	}
	for in, want := range cases {
		if got := SuffixStemmer.Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadStopWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	if err := os.WriteFile(path, []byte("the\n\n  on \nA\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	words, err := LoadStopWords(path)
	if err != nil {
		t.Fatalf("LoadStopWords: %v", err)
	}
	if !reflect.DeepEqual(words, []string{"the", "on", "A"}) {
		t.Errorf("words = %v", words)
	}
	tok := New(words, nil)
	if !tok.IsStopWord("a") {
		t.Error("stop words should be case-folded")
	}
	if _, err := LoadStopWords(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func BenchmarkTokenize(b *testing.B) {
	tok := New(DefaultStopWords, SuffixStemmer)
	text := "A distributed search engine with inverted indexing, BM25 ranking and chunked semantic retrieval."
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tok.Tokenize(text)
	}
}
