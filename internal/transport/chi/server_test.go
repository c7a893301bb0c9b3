package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
	"github.com/paulcsavdari/paul-ai-backend/internal/metrics"
	askuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/ask"
	healthuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/health"
	ingestuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/ingest"
	"github.com/paulcsavdari/paul-ai-backend/internal/usecase/route"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type stubEmbedder struct{ calls int }

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	s.calls++
	return domain.EmbeddingResult{Embedding: []float32{0.1}}, nil
}

type stubSearcher struct {
	hits []domain.RetrievalHit
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ []float32, _ int, _ float32) ([]domain.RetrievalHit, error) {
	return s.hits, nil
}

type stubCompleter struct{ reply string }

func (s *stubCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return s.reply, nil
}

type stubOrchestrator struct{}

func (stubOrchestrator) Execute(_ context.Context, _, _ string) (domain.Grounding, error) {
	return domain.Grounding{State: domain.Ungrounded}, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, _ []domain.CitationRef) []domain.SourceEntry {
	return nil
}

type stubRepo struct {
	ensures int
	upserts int
}

func (s *stubRepo) EnsureCollection(_ context.Context, _ string, _ int) error {
	s.ensures++
	return nil
}

func (s *stubRepo) Upsert(_ context.Context, _ string, _ []domain.Point) error {
	s.upserts++
	return nil
}

type fixture struct {
	router http.Handler
	embed  *stubEmbedder
	repo   *stubRepo
}

func newFixture(t *testing.T, adminToken string) *fixture {
	t.Helper()

	embed := &stubEmbedder{}
	repo := &stubRepo{}
	search := &stubSearcher{hits: []domain.RetrievalHit{{Score: 0.8, Text: "ctx"}}}

	askSvc := askuc.New(
		domain.PolicyDirectSearch,
		route.NewService(),
		embed,
		search,
		&stubCompleter{reply: "An answer."},
		stubOrchestrator{},
		stubResolver{},
		askuc.Collections{Canon: "paul_canon", Mainstream: "paul_mainstream"},
		5, 0.25,
		zap.NewNop(),
	)
	ingestSvc := ingestuc.New(repo, embed, 1536, zap.NewNop())
	healthSvc := healthuc.New(nil, nil, nil)

	srv := NewServer(askSvc, ingestSvc, healthSvc,
		Collections{Canon: "paul_canon", Mainstream: "paul_mainstream"},
		adminToken, zap.NewNop())

	return &fixture{
		router: NewRouter(srv),
		embed:  embed,
		repo:   repo,
	}
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAsk_OK(t *testing.T) {
	f := newFixture(t, "secret")

	rec := doJSON(t, f.router, http.MethodPost, "/api/ask", `{"question":"who?","lang":"en"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Answer != "An answer." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("missing CORS header, got %q", got)
	}
}

func TestAsk_MissingQuestion(t *testing.T) {
	f := newFixture(t, "secret")

	for _, body := range []string{`{}`, `{"question":"   "}`, `not json`} {
		rec := doJSON(t, f.router, http.MethodPost, "/api/ask", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestAsk_Preflight(t *testing.T) {
	f := newFixture(t, "secret")

	rec := doJSON(t, f.router, http.MethodOptions, "/api/ask", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "POST, OPTIONS" {
		t.Errorf("unexpected allow-methods: %q", got)
	}
}

func TestAsk_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, "secret")

	rec := doJSON(t, f.router, http.MethodGet, "/api/ask", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Method Not Allowed") {
		t.Errorf("expected JSON error body, got %q", rec.Body.String())
	}
}

func TestIngest_OK(t *testing.T) {
	f := newFixture(t, "secret")

	body := `{"collection":"main","title":"T","section":"S","lang":"ro","text":"some corpus text"}`
	rec := doJSON(t, f.router, http.MethodPost, "/api/ingest", body,
		map[string]string{"X-Admin-Token": "secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OK         bool   `json:"ok"`
		Added      int    `json:"added"`
		Collection string `json:"collection"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.OK || resp.Added != 1 || resp.Collection != "paul_mainstream" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestIngest_Unauthorized_ZeroSideEffects(t *testing.T) {
	f := newFixture(t, "secret")

	// No header at all.
	rec := doJSON(t, f.router, http.MethodPost, "/api/ingest",
		`{"text":"should never be processed"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	// Wrong token.
	rec = doJSON(t, f.router, http.MethodPost, "/api/ingest",
		`{"text":"should never be processed"}`,
		map[string]string{"X-Admin-Token": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	if f.embed.calls != 0 {
		t.Errorf("embedding must not run on rejected requests, got %d calls", f.embed.calls)
	}
	if f.repo.ensures != 0 || f.repo.upserts != 0 {
		t.Error("vector store must not be touched on rejected requests")
	}
}

func TestIngest_TokenUnconfigured(t *testing.T) {
	f := newFixture(t, "")

	rec := doJSON(t, f.router, http.MethodPost, "/api/ingest",
		`{"text":"t"}`, map[string]string{"X-Admin-Token": "anything"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unconfigured token, got %d", rec.Code)
	}
	if f.embed.calls != 0 || f.repo.upserts != 0 {
		t.Error("no work may happen when the admin token is unconfigured")
	}
}

func TestIngest_EmptyText(t *testing.T) {
	f := newFixture(t, "secret")

	rec := doJSON(t, f.router, http.MethodPost, "/api/ingest",
		`{"text":"   "}`, map[string]string{"X-Admin-Token": "secret"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "secret")

	rec := doJSON(t, f.router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}
}
