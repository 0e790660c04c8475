// Package tokenizer turns free text into normalised index terms. It
// lower-cases input, strips punctuation, splits on whitespace, removes
// stop-words and stems what remains. The stop-word set and the stemmer are
// supplied by the caller.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenizer is safe for concurrent use once constructed.
type Tokenizer struct {
	stopWords map[string]struct{}
	stemmer   Stemmer
}

// New builds a Tokenizer. A nil stemmer leaves tokens unchanged.
func New(stopWords []string, stemmer Stemmer) *Tokenizer {
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	if stemmer == nil {
		stemmer = IdentityStemmer
	}
	return &Tokenizer{stopWords: set, stemmer: stemmer}
}

// Tokenize breaks text into the ordered sequence of terms used for indexing
// and querying. Empty or all-stop-word text yields an empty slice.
func (t *Tokenizer) Tokenize(text string) []string {
	words := strings.Fields(stripPunctuation(strings.ToLower(text)))
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if _, isStop := t.stopWords[word]; isStop {
			continue
		}
		stemmed := t.stemmer.Stem(word)
		if stemmed == "" {
			continue
		}
		terms = append(terms, stemmed)
	}
	return terms
}

// NormalizeTerm applies the same case folding, punctuation stripping and
// stemming as Tokenize to a single word, without stop-word filtering.
func (t *Tokenizer) NormalizeTerm(word string) string {
	word = strings.TrimSpace(stripPunctuation(strings.ToLower(word)))
	if word == "" {
		return ""
	}
	return t.stemmer.Stem(word)
}

// IsStopWord reports whether word (case-insensitive) is in the stop-word set.
func (t *Tokenizer) IsStopWord(word string) bool {
	_, ok := t.stopWords[strings.ToLower(word)]
	return ok
}

func stripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, text)
}
