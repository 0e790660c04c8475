// Package embedding defines the text embedding capability used by the
// semantic index. Implementations live in subpackages.
package embedding

import "context"

// Embedder turns text into fixed-dimension vectors. Implementations must be
// safe for concurrent use.
type Embedder interface {
	// EmbedText embeds a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts embeds a batch; the result is aligned with texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the length of every vector the embedder returns.
	Dimension() int
}
