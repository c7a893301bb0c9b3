package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrIngestion signals a failed corpus ingestion call.
	ErrIngestion = errors.New("ingestion failed")
	// ErrJobCreation signals that the hosted job could not be started.
	ErrJobCreation = errors.New("job creation failed")
	// ErrNoAssistantMessage signals a finished job with no assistant output.
	ErrNoAssistantMessage = errors.New("no assistant message")
	// ErrUnauthorized signals a missing or mismatched admin token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidStatusTransition signals a backward job status transition.
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	// ErrUnknownPolicy signals an unrecognized grounding policy.
	ErrUnknownPolicy = errors.New("unknown grounding policy")
)

// JobCreationError wraps ErrJobCreation with the upstream stage, status and body.
type JobCreationError struct {
	Stage  string // "assistant", "thread", "run"
	Status int
	Body   string
}

func (e *JobCreationError) Error() string {
	return fmt.Sprintf("%s: create %s: upstream status %d: %s",
		ErrJobCreation.Error(), e.Stage, e.Status, e.Body)
}

func (e *JobCreationError) Unwrap() error { return ErrJobCreation }

// NewJobCreationError creates a job creation error for the given stage.
func NewJobCreationError(stage string, status int, body string) error {
	return &JobCreationError{Stage: stage, Status: status, Body: body}
}
