// Package qdrant persists and searches corpus chunks in a Qdrant instance.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

// Store is a Qdrant-backed vector repository for corpus collections.
type Store struct {
	client *qdrant.Client
	logger *zap.Logger
}

// Config holds the Qdrant connection settings.
type Config struct {
	URL    string
	APIKey string
	Logger *zap.Logger
}

// NewStore connects to Qdrant over gRPC. The URL is the HTTP endpoint
// ("http://host:6333"); the gRPC port is derived as HTTP port + 1.
func NewStore(cfg *Config) (*Store, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant url %q: %w", cfg.URL, err)
	}

	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsed.Port() != "" {
		if httpPort, err := strconv.Atoi(parsed.Port()); err == nil {
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &Store{client: client, logger: cfg.Logger}, nil
}

// EnsureCollection creates the collection if it does not exist yet.
// Cosine distance, fixed vector size.
func (s *Store) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", collection, err)
	}
	if exists {
		return nil
	}

	s.logger.Info("creating collection",
		zap.String("collection", collection),
		zap.Int("vector_size", vectorSize))

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}
	return nil
}

// Upsert writes chunk points into the collection.
func (s *Store) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	qPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		qPoints = append(qPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"title":   p.Payload.Title,
				"section": p.Payload.Section,
				"lang":    p.Payload.Language,
				"text":    p.Payload.Text,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qPoints,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(points), collection, err)
	}

	s.logger.Info("upserted points",
		zap.String("collection", collection),
		zap.Int("count", len(points)))
	return nil
}

// Search runs a similarity query and returns hits above the score threshold.
// The threshold is applied server-side.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, threshold float32) ([]domain.RetrievalHit, error) {
	lim := uint64(limit)
	scored, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: &threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	hits := make([]domain.RetrievalHit, 0, len(scored))
	for _, point := range scored {
		hits = append(hits, domain.RetrievalHit{
			Score:    point.Score,
			Title:    payloadString(point.Payload, "title"),
			Section:  payloadString(point.Payload, "section"),
			Language: payloadString(point.Payload, "lang"),
			Text:     payloadString(point.Payload, "text"),
		})
	}
	return hits, nil
}

// HealthCheck verifies the Qdrant connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return v.GetStringValue()
}
