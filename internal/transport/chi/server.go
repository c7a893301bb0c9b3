// Package chi exposes the question-answering and admin ingestion API.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
	logpkg "github.com/paulcsavdari/paul-ai-backend/internal/logger"
	askuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/ask"
	healthuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/health"
	ingestuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/ingest"
	"github.com/paulcsavdari/paul-ai-backend/internal/version"
)

// Collections maps the ingest request's collection selector to the
// configured collection names.
type Collections struct {
	Canon      string
	Mainstream string
}

// Server is the HTTP API: public /api/ask plus token-guarded /api/ingest.
type Server struct {
	ask         *askuc.Service
	ingest      *ingestuc.Service
	health      *healthuc.Service
	collections Collections
	adminToken  string
	logger      *zap.Logger
}

// NewServer creates an HTTP API server. An empty adminToken disables
// ingestion entirely (500 on every call) rather than leaving it open.
func NewServer(
	ask *askuc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	collections Collections,
	adminToken string,
	logger *zap.Logger,
) *Server {
	return &Server{
		ask:         ask,
		ingest:      ingest,
		health:      health,
		collections: collections,
		adminToken:  adminToken,
		logger:      logger,
	}
}

// Routes mounts the API onto a router with the given middleware applied to
// the /api subtree.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(corsMiddleware)
		r.MethodNotAllowed(handleMethodNotAllowed)

		r.Options("/ask", handlePreflight)
		r.Post("/ask", s.handleAsk)
		r.Options("/ingest", handlePreflight)
		r.Post("/ingest", s.handleIngest)
	})
}

type askRequest struct {
	Question string `json:"question"`
	Lang     string `json:"lang"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// handleAsk handles POST /api/ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "Missing 'question'")
		return
	}

	answer, err := s.ask.Ask(r.Context(), question, req.Lang)
	if err != nil {
		// Detail is logged, never returned to the caller.
		s.requestLogger(r).Error("ask pipeline failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}

type ingestRequest struct {
	Collection string `json:"collection"`
	Title      string `json:"title"`
	Section    string `json:"section"`
	Lang       string `json:"lang"`
	Text       string `json:"text"`
}

type ingestResponse struct {
	OK         bool   `json:"ok"`
	Added      int    `json:"added"`
	Collection string `json:"collection"`
}

// handleIngest handles POST /api/ingest. The admin token is checked before
// any body parsing or side effects.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := s.authorizeAdmin(r); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "Missing admin token configuration")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "No text provided")
		return
	}

	collection := s.collections.Canon
	if req.Collection == "main" {
		collection = s.collections.Mainstream
	}

	lang := req.Lang
	if lang == "" {
		lang = "ro"
	}
	if len(lang) > 2 {
		lang = lang[:2]
	}

	added, err := s.ingest.Ingest(r.Context(), collection,
		strings.TrimSpace(req.Title), strings.TrimSpace(req.Section), lang, text)
	if err != nil {
		s.requestLogger(r).Error("ingestion failed",
			zap.String("collection", collection),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{OK: true, Added: added, Collection: collection})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":  report.Status,
		"checks":  report.Checks,
		"version": version.Version,
	})
}

func handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// corsMiddleware mirrors the public widget contract: any origin, POST plus
// preflight, Content-Type and the admin token header.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// authorizeAdmin validates the shared-secret header. An unconfigured token
// is a server misconfiguration, not an authorization failure.
func (s *Server) authorizeAdmin(r *http.Request) error {
	if s.adminToken == "" {
		return errAdminTokenUnset
	}
	if r.Header.Get("X-Admin-Token") != s.adminToken {
		return domain.ErrUnauthorized
	}
	return nil
}

var errAdminTokenUnset = errors.New("admin token not configured")

// requestLogger prefers the request-scoped logger (carries the request id)
// over the server's base logger.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}

// NewRouter builds the full router with the standard middleware chain.
func NewRouter(s *Server, mws ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	for _, mw := range mws {
		r.Use(mw)
	}
	s.Routes(r)
	return r
}
