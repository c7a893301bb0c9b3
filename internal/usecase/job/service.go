// Package job drives a hosted retrieval+generation job through its polling
// state machine.
package job

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
	"github.com/paulcsavdari/paul-ai-backend/internal/metrics"
)

const (
	defaultPollInterval = 1500 * time.Millisecond
	defaultMaxPolls     = 40
)

// Service orchestrates one hosted job per call. The poll loop is bounded:
// on cap exhaustion it exits with the last observed status instead of
// blocking. The backend job is not told to stop, so a timed-out run may keep
// consuming backend resources.
type Service struct {
	runner       Runner
	pollInterval time.Duration
	maxPolls     int
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *zap.Logger
}

// New creates an orchestrator with the default poll policy (1.5s, 40 polls).
func New(runner Runner, logger *zap.Logger) *Service {
	return &Service{
		runner:       runner,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		sleep:        sleepContext,
		logger:       logger,
	}
}

// WithPollPolicy overrides the inter-poll delay and the poll cap.
func (s *Service) WithPollPolicy(interval time.Duration, maxPolls int) *Service {
	s.pollInterval = interval
	s.maxPolls = maxPolls
	return s
}

// WithSleep replaces the sleep function. Tests use this to avoid real delays.
func (s *Service) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Service {
	s.sleep = sleep
	return s
}

// Execute runs one hosted job: create the ephemeral assistant, thread, and
// run; poll until a terminal status or the poll cap; then fetch the latest
// assistant message regardless of the final status. A missing or empty
// message collapses into an Ungrounded result rather than an error.
func (s *Service) Execute(ctx context.Context, instructions, question string) (domain.Grounding, error) {
	assistantID, err := s.runner.CreateAssistant(ctx, instructions)
	if err != nil {
		return domain.Grounding{}, err
	}
	defer func() {
		if delErr := s.runner.DeleteAssistant(context.WithoutCancel(ctx), assistantID); delErr != nil {
			s.logger.Warn("assistant cleanup failed",
				zap.String("assistant_id", assistantID),
				zap.Error(delErr))
		}
	}()

	threadID, err := s.runner.CreateThread(ctx, question)
	if err != nil {
		return domain.Grounding{}, err
	}

	runID, status, err := s.runner.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return domain.Grounding{}, err
	}

	j := domain.Job{ID: assistantID, ThreadID: threadID, RunID: runID, Status: status}

	polls := 0
	for j.Status.Active() && polls < s.maxPolls {
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return domain.Grounding{}, err
		}
		polls++

		next, err := s.runner.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return domain.Grounding{}, err
		}
		if advErr := j.AdvanceTo(next); advErr != nil {
			// Upstream reported an earlier status; the forward-only
			// invariant holds and the regression is dropped.
			s.logger.Warn("ignoring status regression",
				zap.String("run_id", runID),
				zap.String("current", string(j.Status)),
				zap.String("reported", string(next)))
		}
	}

	metrics.JobPollsTotal.WithLabelValues(string(j.Status)).Observe(float64(polls))

	text, refs, err := s.runner.LatestAssistantMessage(ctx, threadID)
	if err != nil {
		if errors.Is(err, domain.ErrNoAssistantMessage) {
			return domain.Grounding{State: domain.Ungrounded, Status: j.Status}, nil
		}
		return domain.Grounding{}, err
	}
	if strings.TrimSpace(text) == "" {
		return domain.Grounding{State: domain.Ungrounded, Status: j.Status}, nil
	}

	return domain.Grounding{
		State:     domain.Grounded,
		Text:      text,
		Citations: refs,
		Status:    j.Status,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
