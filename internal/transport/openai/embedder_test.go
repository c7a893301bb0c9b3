package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	sdk "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
	"github.com/paulcsavdari/paul-ai-backend/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func TestEmbedder_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model"}
		resp.Data = append(resp.Data, struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{
			Object:    "embedding",
			Embedding: expectedVec,
			Index:     0,
		})
		resp.Usage.PromptTokens = 10
		resp.Usage.TotalTokens = 10

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	result, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(result.Embedding) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
	if result.TotalTokens != 10 {
		t.Errorf("expected 10 total tokens, got %d", result.TotalTokens)
	}
}

func TestEmbedder_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"upstream down"}}`))
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestMapRunStatus(t *testing.T) {
	cases := map[string]domain.RunStatus{
		"queued":          domain.StatusQueued,
		"in_progress":     domain.StatusInProgress,
		"requires_action": domain.StatusRequiresAction,
		"completed":       domain.StatusCompleted,
		"expired":         domain.StatusExpired,
		"failed":          domain.StatusFailed,
		"cancelled":       domain.StatusFailed,
		"cancelling":      domain.StatusFailed,
	}
	for in, want := range cases {
		if got := mapRunStatus(sdk.RunStatus(in)); got != want {
			t.Errorf("mapRunStatus(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestCitationRefs(t *testing.T) {
	annotations := []any{
		map[string]any{
			"type": "file_citation",
			"file_citation": map[string]any{
				"file_id": "file-abc",
			},
		},
		map[string]any{"type": "file_path"},
		map[string]any{
			"type": "file_citation",
			"file_citation": map[string]any{
				"file_id": "file-def",
			},
		},
	}

	refs := citationRefs(annotations)
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].FileID != "file-abc" || refs[1].FileID != "file-def" {
		t.Errorf("unexpected refs: %+v", refs)
	}
}
