package job

import (
	"context"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

// Runner is the hosted job backend: ephemeral agent plus thread plus run,
// driven by polling.
type Runner interface {
	CreateAssistant(ctx context.Context, instructions string) (assistantID string, err error)
	CreateThread(ctx context.Context, question string) (threadID string, err error)
	CreateRun(ctx context.Context, threadID, assistantID string) (runID string, status domain.RunStatus, err error)
	RetrieveRun(ctx context.Context, threadID, runID string) (domain.RunStatus, error)
	LatestAssistantMessage(ctx context.Context, threadID string) (text string, refs []domain.CitationRef, err error)
	DeleteAssistant(ctx context.Context, assistantID string) error
}
