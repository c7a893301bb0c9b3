package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

type mockRepo struct {
	ensured  []string
	upserted []domain.Point
	upsertN  int
	err      error
}

func (m *mockRepo) EnsureCollection(_ context.Context, collection string, _ int) error {
	if m.err != nil {
		return m.err
	}
	m.ensured = append(m.ensured, collection)
	return nil
}

func (m *mockRepo) Upsert(_ context.Context, _ string, points []domain.Point) error {
	m.upsertN++
	m.upserted = append(m.upserted, points...)
	return nil
}

type mockEmbedder struct {
	calls   int
	failAt  int
	lastErr error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.failAt > 0 && m.calls >= m.failAt {
		m.lastErr = errors.New("provider down")
		return domain.EmbeddingResult{}, m.lastErr
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

func TestChunk(t *testing.T) {
	t.Run("coverage and count", func(t *testing.T) {
		text := strings.Repeat("a", 2500)
		chunks := Chunk(text, 1100, 220)

		if len(chunks) != 3 {
			t.Fatalf("expected 3 chunks for 2500 chars, got %d", len(chunks))
		}

		total := 0
		for _, c := range chunks {
			total += len(c)
		}
		// Overlapping windows must cover at least every character once.
		if total < len(text) {
			t.Errorf("chunks cover %d chars, original has %d", total, len(text))
		}
	})

	t.Run("short text yields one chunk", func(t *testing.T) {
		chunks := Chunk("short", 1100, 220)
		if len(chunks) != 1 || chunks[0] != "short" {
			t.Fatalf("unexpected chunks: %v", chunks)
		}
	})

	t.Run("empty text yields nothing", func(t *testing.T) {
		if chunks := Chunk("", 1100, 220); chunks != nil {
			t.Fatalf("expected nil, got %v", chunks)
		}
	})

	t.Run("last window may be short", func(t *testing.T) {
		text := strings.Repeat("x", 1200)
		chunks := Chunk(text, 1100, 220)
		if len(chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(chunks))
		}
		if len(chunks[0]) != 1100 {
			t.Errorf("first chunk should be full size, got %d", len(chunks[0]))
		}
		if len(chunks[1]) != 1200-880 {
			t.Errorf("last chunk length = %d", len(chunks[1]))
		}
	})
}

func TestIngest(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{}
	svc := New(repo, embed, 1536, zap.NewNop())

	added, err := svc.Ingest(context.Background(), "paul_canon", "T", "S", "ro", strings.Repeat("a", 2500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 3 {
		t.Fatalf("expected 3 points added, got %d", added)
	}
	if len(repo.ensured) != 1 || repo.ensured[0] != "paul_canon" {
		t.Errorf("collection not ensured: %v", repo.ensured)
	}
	if len(repo.upserted) != 3 {
		t.Fatalf("expected 3 upserted points, got %d", len(repo.upserted))
	}
	seen := map[string]bool{}
	for _, p := range repo.upserted {
		if p.Payload.Title != "T" || p.Payload.Section != "S" || p.Payload.Language != "ro" {
			t.Errorf("unexpected payload: %+v", p.Payload)
		}
		if p.ID == "" || seen[p.ID] {
			t.Errorf("point ids must be unique and non-empty, got %q", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestIngest_EmbedFailureAborts(t *testing.T) {
	repo := &mockRepo{}
	embed := &mockEmbedder{failAt: 2}
	svc := New(repo, embed, 1536, zap.NewNop())

	_, err := svc.Ingest(context.Background(), "paul_canon", "T", "S", "ro", strings.Repeat("a", 2500))
	if !errors.Is(err, domain.ErrIngestion) {
		t.Fatalf("expected ErrIngestion, got %v", err)
	}
	if repo.upsertN != 0 {
		t.Error("no points may be written when an embedding call fails")
	}
}
