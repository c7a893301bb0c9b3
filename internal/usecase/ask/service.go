// Package ask runs the question-answering pipeline: route, ground, resolve
// citations, compose.
package ask

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
	"github.com/paulcsavdari/paul-ai-backend/internal/metrics"
	"github.com/paulcsavdari/paul-ai-backend/internal/usecase/answer"
)

// Collections names the two corpus collections the direct strategy searches.
type Collections struct {
	Canon      string
	Mainstream string
}

// Service is the question-answering pipeline, parameterized by a grounding
// policy chosen once at startup.
type Service struct {
	policy      domain.GroundingPolicy
	router      Router
	embed       Embedder
	search      Searcher
	chat        Completer
	jobs        Orchestrator
	citations   CitationResolver
	collections Collections
	topK        int
	threshold   float32
	logger      *zap.Logger
}

// New creates the pipeline service.
func New(
	policy domain.GroundingPolicy,
	router Router,
	embed Embedder,
	search Searcher,
	chat Completer,
	jobs Orchestrator,
	citations CitationResolver,
	collections Collections,
	topK int,
	threshold float32,
	logger *zap.Logger,
) *Service {
	return &Service{
		policy:      policy,
		router:      router,
		embed:       embed,
		search:      search,
		chat:        chat,
		jobs:        jobs,
		citations:   citations,
		collections: collections,
		topK:        topK,
		threshold:   threshold,
		logger:      logger,
	}
}

// Ask answers one question. The returned string is always presentable: a
// grounded answer, optionally with sources, or the canonical refusal
// sentence. Errors abort the request (mapped to 500 by transport).
func (s *Service) Ask(ctx context.Context, question, requestedLang string) (string, error) {
	cls := s.router.Classify(question, requestedLang)

	var (
		g       domain.Grounding
		sources []domain.SourceEntry
		err     error
	)

	switch s.policy {
	case domain.PolicyDirectSearch:
		g, err = s.directGrounding(ctx, question, cls)

	case domain.PolicyHostedStrict:
		g, err = s.jobs.Execute(ctx, corpusOnlyInstructions(cls.Language), question)
		// Corpus-only contract: an answer with no citations is not
		// grounded in the corpus.
		if err == nil && g.State == domain.Grounded && len(g.Citations) == 0 {
			g = domain.Grounding{State: domain.Ungrounded, Status: g.Status}
		}

	case domain.PolicyHostedFallback:
		g, err = s.jobs.Execute(ctx, corpusOnlyInstructions(cls.Language), question)
		if err != nil && errors.Is(err, domain.ErrJobCreation) && !cls.Sensitive {
			s.logger.Warn("hosted job unavailable, falling back to direct search",
				zap.Error(err))
			g, err = s.directGrounding(ctx, question, cls)
		}

	default:
		return "", domain.ErrUnknownPolicy
	}

	if err != nil {
		metrics.AnswersTotal.WithLabelValues(string(s.policy), "error").Inc()
		return "", err
	}

	if g.State == domain.Grounded && len(g.Citations) > 0 {
		sources = s.citations.Resolve(ctx, g.Citations)
	}

	composed := answer.Compose(g, cls.Language, sources)

	outcome := "grounded"
	if g.State != domain.Grounded {
		outcome = "refusal"
	}
	metrics.AnswersTotal.WithLabelValues(string(s.policy), outcome).Inc()

	return composed, nil
}

// directGrounding embeds the question, searches the corpus, and runs one
// chat completion over the retrieved context. Retrieval failures degrade to
// no context; only the embedding and completion calls can fail the request.
func (s *Service) directGrounding(ctx context.Context, question string, cls domain.Classification) (domain.Grounding, error) {
	result, err := s.embed.Embed(ctx, question)
	if err != nil {
		return domain.Grounding{}, err
	}

	hits := s.searchCollection(ctx, s.collections.Canon, result.Embedding)
	if !cls.Sensitive && s.collections.Mainstream != "" {
		hits = append(hits, s.searchCollection(ctx, s.collections.Mainstream, result.Embedding)...)
	}

	if len(hits) == 0 {
		return domain.Grounding{State: domain.Ungrounded}, nil
	}

	text, err := s.chat.Complete(ctx, personaPrompt(cls.Language, contextBlock(hits)), question)
	if err != nil {
		return domain.Grounding{}, err
	}

	return domain.Grounding{State: domain.Grounded, Text: text}, nil
}

func (s *Service) searchCollection(ctx context.Context, collection string, vector []float32) []domain.RetrievalHit {
	hits, err := s.search.Search(ctx, collection, vector, s.topK, s.threshold)
	if err != nil {
		// Retrieval failure degrades to "no context", never crashes
		// the pipeline.
		s.logger.Warn("similarity search failed",
			zap.String("collection", collection),
			zap.Error(err))
		return nil
	}
	return hits
}
