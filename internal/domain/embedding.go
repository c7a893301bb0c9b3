package domain

import "context"

// EmbeddingResult is a vector plus the token usage that produced it.
// Cache hits report zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}
