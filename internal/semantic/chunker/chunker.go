// Package chunker splits document text into overlapping windows. Sentence
// windows feed the embedding index; word windows back the CLI preview.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

const (
	DefaultWindowSize = 4
	DefaultOverlap    = 1
)

// SplitSentences breaks text after every '.', '!' or '?' that is followed
// by whitespace. Sentences are trimmed and empty ones dropped.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[i:])
		if i >= len(text) || !unicode.IsSpace(next) {
			continue
		}
		sentences = appendTrimmed(sentences, text[start:i])
		start = i
	}
	return appendTrimmed(sentences, text[start:])
}

func appendTrimmed(dst []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		dst = append(dst, s)
	}
	return dst
}

// SemanticChunk groups the sentences of text into windows of at most
// windowSize sentences. Each window starts windowSize-overlap sentences
// after the previous one and the last window always ends on the final
// sentence. Blank text yields no chunks.
func SemanticChunk(text string, windowSize, overlap int) ([]string, error) {
	if err := validate(windowSize, overlap); err != nil {
		return nil, err
	}
	return windows(SplitSentences(text), windowSize, overlap), nil
}

// FixedChunk is SemanticChunk over whitespace-separated words instead of
// sentences.
func FixedChunk(text string, size, overlap int) ([]string, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return windows(strings.Fields(text), size, overlap), nil
}

func validate(windowSize, overlap int) error {
	if windowSize <= 0 {
		return apperrors.Errorf(apperrors.ErrInvalidParameter, "window size must be positive, got %d", windowSize)
	}
	if overlap < 0 {
		return apperrors.Errorf(apperrors.ErrInvalidParameter, "overlap must not be negative, got %d", overlap)
	}
	if overlap >= windowSize {
		return apperrors.Errorf(apperrors.ErrInvalidParameter,
			"overlap %d must be smaller than window size %d", overlap, windowSize)
	}
	return nil
}

func windows(units []string, size, overlap int) []string {
	n := len(units)
	if n == 0 {
		return nil
	}
	step := size - overlap
	chunks := make([]string, 0, (n+step-1)/step)
	for start := 0; start < n; start += step {
		end := min(start+size, n)
		chunks = append(chunks, strings.Join(units[start:end], " "))
		if end == n {
			break
		}
	}
	return chunks
}
