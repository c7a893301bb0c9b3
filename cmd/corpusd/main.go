package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/config"
	"github.com/paulcsavdari/paul-ai-backend/internal/db"
	dbRedis "github.com/paulcsavdari/paul-ai-backend/internal/db/redis"
	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
	logpkg "github.com/paulcsavdari/paul-ai-backend/internal/logger"
	"github.com/paulcsavdari/paul-ai-backend/internal/metrics"
	"github.com/paulcsavdari/paul-ai-backend/internal/repository/embcache"
	qdrantrepo "github.com/paulcsavdari/paul-ai-backend/internal/repository/qdrant"
	chiTransport "github.com/paulcsavdari/paul-ai-backend/internal/transport/chi"
	openaiTransport "github.com/paulcsavdari/paul-ai-backend/internal/transport/openai"
	askuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/ask"
	citationuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/citation"
	healthuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/health"
	ingestuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/ingest"
	jobuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/job"
	routeuc "github.com/paulcsavdari/paul-ai-backend/internal/usecase/route"
	"github.com/paulcsavdari/paul-ai-backend/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting corpusd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("policy", string(cfg.Policy())),
	)

	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	// Optional Redis-backed embedding cache.
	var store db.Store
	if cfg.Cache.Enabled {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer redisStore.Close()

		if err := redisStore.WaitForReady(ctx, 10*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
		store = redisStore
	}

	// Embedder chain: OpenAI -> cached.
	var embedder domain.Embedder
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbedModel,
		Logger:  logger,
	})
	embedder = baseEmbedder
	if store != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		embedder = embcache.New(baseEmbedder, store, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	// Vector store repository. Ingestion and the direct grounding path both
	// read and write it.
	vectorStore, err := qdrantrepo.NewStore(&qdrantrepo.Config{
		URL:    cfg.Qdrant.URL,
		APIKey: cfg.Qdrant.APIKey,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Failed to create vector store client", zap.Error(err))
	}
	defer func() { _ = vectorStore.Close() }()

	chatClient := openaiTransport.NewChatClient(&openaiTransport.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	}, cfg.OpenAI.ChatModel, cfg.OpenAI.Temperature)

	assistantClient := openaiTransport.NewAssistantClient(&openaiTransport.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Logger:  logger,
	}, cfg.OpenAI.AssistantModel, cfg.OpenAI.VectorStoreID, cfg.OpenAI.Temperature)

	orchestrator := jobuc.New(assistantClient, logger).
		WithPollPolicy(time.Duration(cfg.Ask.PollIntervalMS)*time.Millisecond, cfg.Ask.PollMax)

	askSvc := askuc.New(
		cfg.Policy(),
		routeuc.NewService(),
		embedder,
		vectorStore,
		chatClient,
		orchestrator,
		citationuc.New(assistantClient, logger),
		askuc.Collections{
			Canon:      cfg.Qdrant.CollectionCanon,
			Mainstream: cfg.Qdrant.CollectionMainstream,
		},
		cfg.Qdrant.TopK,
		cfg.Qdrant.ScoreThreshold,
		logger,
	)

	ingestSvc := ingestuc.New(vectorStore, embedder, cfg.Qdrant.VectorSize, logger)

	healthSvc := healthuc.New(vectorStore, baseEmbedder, cacheChecker(store))

	server := chiTransport.NewServer(
		askSvc,
		ingestSvc,
		healthSvc,
		chiTransport.Collections{
			Canon:      cfg.Qdrant.CollectionCanon,
			Mainstream: cfg.Qdrant.CollectionMainstream,
		},
		cfg.Admin.Token,
		logger,
	)

	r := chiTransport.NewRouter(server,
		jsonRecoverer(logger),
		wideEventMiddleware(logger),
		metrics.Middleware(),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func cacheChecker(s db.Store) healthuc.Checker {
	if s == nil {
		return nil
	}
	return pingChecker{s}
}

// pingChecker adapts db.Store's Ping to the health check contract.
type pingChecker struct {
	store db.Store
}

func (p pingChecker) HealthCheck(ctx context.Context) error {
	return p.store.Ping(ctx)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a
// plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "Server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates
// X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
