package ask

import (
	"context"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

// Router classifies questions and resolves the response language.
type Router interface {
	Classify(question, requestedLang string) domain.Classification
}

// Embedder vectorizes the question for the direct-search strategy.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher runs similarity search against a corpus collection.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int, threshold float32) ([]domain.RetrievalHit, error)
}

// Completer runs a single-shot chat completion.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Orchestrator drives one hosted retrieval+generation job.
type Orchestrator interface {
	Execute(ctx context.Context, instructions, question string) (domain.Grounding, error)
}

// CitationResolver turns citation refs into display-ready source entries.
type CitationResolver interface {
	Resolve(ctx context.Context, refs []domain.CitationRef) []domain.SourceEntry
}
