package chunker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"no terminal punctuation", "just words here", []string{"just words here"}},
		{"punctuation without space", "Dr.Who met 3.14 people. Then left.", []string{"Dr.Who met 3.14 people.", "Then left."}},
		{"newlines and runs", "First.\n\nSecond.   Third.", []string{"First.", "Second.", "Third."}},
		{"ellipsis", "Wait... what? Yes.", []string{"Wait...", "what?", "Yes."}},
		{"surrounding space", "  Leading. Trailing.  ", []string{"Leading.", "Trailing."}},
		{"blank", "   ", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitSentences(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func numberedText(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("S%d.", i)
	}
	return strings.Join(parts, " ")
}

func TestSemanticChunkWithoutOverlapPartitions(t *testing.T) {
	for n := 0; n <= 11; n++ {
		for w := 1; w <= 5; w++ {
			text := numberedText(n)
			chunks, err := SemanticChunk(text, w, 0)
			if err != nil {
				t.Fatal(err)
			}
			var rebuilt []string
			for _, c := range chunks {
				sentences := SplitSentences(c)
				if len(sentences) == 0 || len(sentences) > w {
					t.Fatalf("n=%d w=%d: chunk %q has %d sentences", n, w, c, len(sentences))
				}
				rebuilt = append(rebuilt, sentences...)
			}
			if !reflect.DeepEqual(rebuilt, SplitSentences(text)) {
				t.Errorf("n=%d w=%d: chunks %q do not partition the text", n, w, chunks)
			}
		}
	}
}

func TestSemanticChunkWithOverlap(t *testing.T) {
	for n := 1; n <= 12; n++ {
		for w := 2; w <= 5; w++ {
			for o := 1; o < w; o++ {
				sentences := SplitSentences(numberedText(n))
				chunks, err := SemanticChunk(numberedText(n), w, o)
				if err != nil {
					t.Fatal(err)
				}
				for i, c := range chunks {
					start := i * (w - o)
					end := min(start+w, n)
					if want := strings.Join(sentences[start:end], " "); c != want {
						t.Fatalf("n=%d w=%d o=%d: chunk %d = %q, want %q", n, w, o, i, c, want)
					}
				}
				last := SplitSentences(chunks[len(chunks)-1])
				if last[len(last)-1] != sentences[n-1] {
					t.Errorf("n=%d w=%d o=%d: last chunk does not end at final sentence", n, w, o)
				}
				if len(chunks) > 1 {
					prev := SplitSentences(chunks[len(chunks)-2])
					if prev[len(prev)-1] == sentences[n-1] {
						t.Errorf("n=%d w=%d o=%d: trailing window emitted twice", n, w, o)
					}
				}
			}
		}
	}
}

func TestSemanticChunkExample(t *testing.T) {
	text := "A cat sat. It purred! A dog barked? The cat ran. The end."
	got, err := SemanticChunk(text, DefaultWindowSize, DefaultOverlap)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"A cat sat. It purred! A dog barked? The cat ran.",
		"The cat ran. The end.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SemanticChunk = %q, want %q", got, want)
	}
}

func TestSemanticChunkBlank(t *testing.T) {
	got, err := SemanticChunk(" \n\t ", 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("blank text gave %q", got)
	}
}

func TestInvalidParameters(t *testing.T) {
	cases := []struct{ window, overlap int }{
		{0, 0}, {-1, 0}, {3, 3}, {3, 5}, {3, -1},
	}
	for _, c := range cases {
		if _, err := SemanticChunk("A. B.", c.window, c.overlap); !errors.Is(err, apperrors.ErrInvalidParameter) {
			t.Errorf("SemanticChunk(w=%d, o=%d) err = %v", c.window, c.overlap, err)
		}
		if _, err := FixedChunk("a b", c.window, c.overlap); !errors.Is(err, apperrors.ErrInvalidParameter) {
			t.Errorf("FixedChunk(w=%d, o=%d) err = %v", c.window, c.overlap, err)
		}
	}
}

func TestFixedChunk(t *testing.T) {
	got, err := FixedChunk("one two three four five six seven", 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"one two three", "three four five", "five six seven"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FixedChunk = %q, want %q", got, want)
	}
}

func BenchmarkSemanticChunk(b *testing.B) {
	text := numberedText(200)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := SemanticChunk(text, 4, 1); err != nil {
			b.Fatal(err)
		}
	}
}
