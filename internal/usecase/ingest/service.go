// Package ingest splits corpus documents into overlapping chunks and stores
// their embeddings in the vector store.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

const (
	defaultChunkSize    = 1100
	defaultChunkOverlap = 220
)

// Service ingests corpus text into a named collection.
type Service struct {
	repo       Repository
	embed      Embedder
	vectorSize int
	chunkSize  int
	overlap    int
	logger     *zap.Logger
}

// New creates an ingestion service with the default chunking parameters.
func New(repo Repository, embed Embedder, vectorSize int, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		embed:      embed,
		vectorSize: vectorSize,
		chunkSize:  defaultChunkSize,
		overlap:    defaultChunkOverlap,
		logger:     logger,
	}
}

// WithChunking overrides the chunk window size and overlap.
func (s *Service) WithChunking(size, overlap int) *Service {
	s.chunkSize = size
	s.overlap = overlap
	return s
}

// Ingest chunks the text, embeds every chunk, and upserts one point per
// chunk into the collection. A single embedding failure aborts the whole
// call; no points are written on partial failure. Returns the number of
// points added.
func (s *Service) Ingest(ctx context.Context, collection, title, section, lang, text string) (int, error) {
	if err := s.repo.EnsureCollection(ctx, collection, s.vectorSize); err != nil {
		return 0, fmt.Errorf("%w: ensure collection: %w", domain.ErrIngestion, err)
	}

	chunks := Chunk(text, s.chunkSize, s.overlap)

	points := make([]domain.Point, 0, len(chunks))
	for i, chunk := range chunks {
		result, err := s.embed.Embed(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("%w: embed chunk %d/%d: %w", domain.ErrIngestion, i+1, len(chunks), err)
		}
		points = append(points, domain.Point{
			ID:     uuid.NewString(),
			Vector: result.Embedding,
			Payload: domain.PointPayload{
				Title:    title,
				Section:  section,
				Language: lang,
				Text:     chunk,
			},
		})
	}

	if err := s.repo.Upsert(ctx, collection, points); err != nil {
		return 0, fmt.Errorf("%w: upsert: %w", domain.ErrIngestion, err)
	}

	s.logger.Info("ingested document",
		zap.String("collection", collection),
		zap.String("title", title),
		zap.Int("chunks", len(points)))
	return len(points), nil
}

// Chunk splits text into overlapping windows. The start offset advances by
// size-overlap each step; the last window may be shorter than size.
func Chunk(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	step := size - overlap
	if step <= 0 {
		return []string{text}
	}

	var out []string
	for i := 0; i < len(text); i += step {
		end := i + size
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[i:end])
	}
	return out
}
