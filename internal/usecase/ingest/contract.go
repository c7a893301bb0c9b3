package ingest

import (
	"context"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

// Repository defines the vector storage contract for ingestion.
type Repository interface {
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error
	Upsert(ctx context.Context, collection string, points []domain.Point) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
