// Package mock provides a deterministic Embedder for tests and offline runs.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/embedding"
)

// Embedder hashes each lower-cased word of the input into a bucket of the
// output vector, so texts sharing words get similar vectors. Function
// fields override the default behaviour when set.
type Embedder struct {
	Dim            int
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	calls atomic.Int64
}

var _ embedding.Embedder = (*Embedder)(nil)

func New(dim int) *Embedder {
	return &Embedder{Dim: dim}
}

func (m *Embedder) Dimension() int {
	return m.Dim
}

func (m *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = Vector(text, m.Dim)
	}
	return vectors, nil
}

// Calls reports how many times EmbedTexts (directly or via EmbedText) ran.
func (m *Embedder) Calls() int {
	return int(m.calls.Load())
}

// Vector is the bag-of-words vector the mock produces for text, scaled to
// unit length. Text without words maps to the zero vector.
func Vector(text string, dim int) []float32 {
	v := make([]float32, dim)
	if dim == 0 {
		return v
	}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%uint32(dim)]++
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
