package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

// assistantName labels the ephemeral assistants so leaked ones are easy to
// spot (and sweep) in the provider dashboard.
const assistantName = "corpusd-ephemeral"

// AssistantClient drives the hosted retrieval+generation job via the
// Assistants v2 API with file_search over a pre-built vector store.
type AssistantClient struct {
	client        *openai.Client
	model         string
	vectorStoreID string
	temperature   float32
	logger        *zap.Logger
}

// NewAssistantClient creates a hosted-job client.
func NewAssistantClient(cfg *Config, model, vectorStoreID string, temperature float32) *AssistantClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &AssistantClient{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         model,
		vectorStoreID: vectorStoreID,
		temperature:   temperature,
		logger:        cfg.Logger,
	}
}

// CreateAssistant registers an ephemeral assistant with file_search bound to
// the corpus vector store.
func (c *AssistantClient) CreateAssistant(ctx context.Context, instructions string) (string, error) {
	name := assistantName
	temp := c.temperature
	assistant, err := c.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        c.model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        []openai.AssistantTool{{Type: openai.AssistantToolTypeFileSearch}},
		ToolResources: &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{
				VectorStoreIDs: []string{c.vectorStoreID},
			},
		},
		Temperature: &temp,
	})
	if err != nil {
		return "", creationError("assistant", err)
	}
	return assistant.ID, nil
}

// CreateThread creates a conversation thread seeded with the user's question.
func (c *AssistantClient) CreateThread(ctx context.Context, question string) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{
		Messages: []openai.ThreadMessage{
			{Role: openai.ThreadMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", creationError("thread", err)
	}
	return thread.ID, nil
}

// CreateRun starts a run of the assistant over the thread.
func (c *AssistantClient) CreateRun(ctx context.Context, threadID, assistantID string) (string, domain.RunStatus, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return "", "", creationError("run", err)
	}
	return run.ID, mapRunStatus(run.Status), nil
}

// RetrieveRun fetches the current run status.
func (c *AssistantClient) RetrieveRun(ctx context.Context, threadID, runID string) (domain.RunStatus, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return "", fmt.Errorf("retrieve run %s: %w", runID, err)
	}
	return mapRunStatus(run.Status), nil
}

// LatestAssistantMessage returns the newest assistant message on the thread:
// all text parts concatenated plus the file_citation refs attached to them.
func (c *AssistantClient) LatestAssistantMessage(ctx context.Context, threadID string) (string, []domain.CitationRef, error) {
	limit := 10
	order := "desc"
	msgs, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", nil, fmt.Errorf("list messages: %w", err)
	}

	for _, msg := range msgs.Messages {
		if msg.Role != "assistant" {
			continue
		}
		var text string
		var refs []domain.CitationRef
		for _, part := range msg.Content {
			if part.Type != "text" || part.Text == nil {
				continue
			}
			text += part.Text.Value + "\n"
			refs = append(refs, citationRefs(part.Text.Annotations)...)
		}
		return text, refs, nil
	}
	return "", nil, domain.ErrNoAssistantMessage
}

// DeleteAssistant removes the ephemeral assistant. Best-effort cleanup:
// callers ignore the error beyond logging.
func (c *AssistantClient) DeleteAssistant(ctx context.Context, assistantID string) error {
	if _, err := c.client.DeleteAssistant(ctx, assistantID); err != nil {
		return fmt.Errorf("delete assistant %s: %w", assistantID, err)
	}
	return nil
}

// FetchFileContent streams the raw content of a stored document.
func (c *AssistantClient) FetchFileContent(ctx context.Context, fileID string) (io.ReadCloser, error) {
	raw, err := c.client.GetFileContent(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("fetch file %s: %w", fileID, err)
	}
	return raw, nil
}

// FetchFileName returns the stored filename of a document, used to recover a
// source URL when the content carries no URL metadata line.
func (c *AssistantClient) FetchFileName(ctx context.Context, fileID string) (string, error) {
	f, err := c.client.GetFile(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("fetch file meta %s: %w", fileID, err)
	}
	return f.FileName, nil
}

// citationRefs extracts file_citation refs from message annotations. The SDK
// leaves annotations untyped, so they are re-decoded through JSON.
func citationRefs(annotations []any) []domain.CitationRef {
	var refs []domain.CitationRef
	for _, ann := range annotations {
		raw, err := json.Marshal(ann)
		if err != nil {
			continue
		}
		var parsed struct {
			Type         string `json:"type"`
			FileCitation struct {
				FileID string `json:"file_id"`
			} `json:"file_citation"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			continue
		}
		if parsed.Type == "file_citation" && parsed.FileCitation.FileID != "" {
			refs = append(refs, domain.CitationRef{FileID: parsed.FileCitation.FileID})
		}
	}
	return refs
}

// mapRunStatus maps provider run statuses onto the domain enum. Cancellation
// statuses collapse to failed: this service never cancels runs itself, so an
// externally cancelled run is a failure from its point of view.
func mapRunStatus(s openai.RunStatus) domain.RunStatus {
	switch s {
	case openai.RunStatusQueued:
		return domain.StatusQueued
	case openai.RunStatusInProgress:
		return domain.StatusInProgress
	case openai.RunStatusRequiresAction:
		return domain.StatusRequiresAction
	case openai.RunStatusCompleted:
		return domain.StatusCompleted
	case openai.RunStatusExpired:
		return domain.StatusExpired
	default:
		return domain.StatusFailed
	}
}

// creationError maps an SDK error to a JobCreationError carrying the
// upstream status and body.
func creationError(stage string, err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewJobCreationError(stage, reqErr.HTTPStatusCode, string(reqErr.Body))
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewJobCreationError(stage, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return domain.NewJobCreationError(stage, 0, err.Error())
}
