package job

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
	"github.com/paulcsavdari/paul-ai-backend/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type mockRunner struct {
	createAssistantErr error
	createThreadErr    error
	createRunErr       error

	initialStatus domain.RunStatus
	statuses      []domain.RunStatus
	retrieves     int

	message    string
	refs       []domain.CitationRef
	messageErr error

	deleted []string
}

func (m *mockRunner) CreateAssistant(_ context.Context, _ string) (string, error) {
	if m.createAssistantErr != nil {
		return "", m.createAssistantErr
	}
	return "asst-1", nil
}

func (m *mockRunner) CreateThread(_ context.Context, _ string) (string, error) {
	if m.createThreadErr != nil {
		return "", m.createThreadErr
	}
	return "thread-1", nil
}

func (m *mockRunner) CreateRun(_ context.Context, _, _ string) (string, domain.RunStatus, error) {
	if m.createRunErr != nil {
		return "", "", m.createRunErr
	}
	return "run-1", m.initialStatus, nil
}

func (m *mockRunner) RetrieveRun(_ context.Context, _, _ string) (domain.RunStatus, error) {
	if m.retrieves < len(m.statuses) {
		s := m.statuses[m.retrieves]
		m.retrieves++
		return s, nil
	}
	m.retrieves++
	// Past the script, keep reporting the last known status.
	if len(m.statuses) > 0 {
		return m.statuses[len(m.statuses)-1], nil
	}
	return m.initialStatus, nil
}

func (m *mockRunner) LatestAssistantMessage(_ context.Context, _ string) (string, []domain.CitationRef, error) {
	if m.messageErr != nil {
		return "", nil, m.messageErr
	}
	return m.message, m.refs, nil
}

func (m *mockRunner) DeleteAssistant(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newService(r *mockRunner) *Service {
	return New(r, zap.NewNop()).WithSleep(noSleep)
}

func TestExecute_Completed(t *testing.T) {
	runner := &mockRunner{
		initialStatus: domain.StatusQueued,
		statuses:      []domain.RunStatus{domain.StatusInProgress, domain.StatusCompleted},
		message:       "the answer",
		refs:          []domain.CitationRef{{FileID: "file-1"}},
	}
	svc := newService(runner)

	g, err := svc.Execute(context.Background(), "instructions", "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.State != domain.Grounded {
		t.Fatalf("expected Grounded, got %v", g.State)
	}
	if g.Text != "the answer" || len(g.Citations) != 1 {
		t.Errorf("unexpected grounding: %+v", g)
	}
	if g.Status != domain.StatusCompleted {
		t.Errorf("expected completed status, got %s", g.Status)
	}
	if len(runner.deleted) != 1 || runner.deleted[0] != "asst-1" {
		t.Errorf("ephemeral assistant not cleaned up: %v", runner.deleted)
	}
}

func TestExecute_BoundedPolling(t *testing.T) {
	// Upstream never leaves in_progress; the loop must still terminate.
	runner := &mockRunner{initialStatus: domain.StatusInProgress}
	sleeps := 0
	svc := New(runner, zap.NewNop()).
		WithSleep(func(_ context.Context, _ time.Duration) error {
			sleeps++
			return nil
		}).
		WithPollPolicy(time.Millisecond, 7)

	g, err := svc.Execute(context.Background(), "i", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sleeps != 7 {
		t.Errorf("expected exactly 7 polls, got %d", sleeps)
	}
	if g.Status != domain.StatusInProgress {
		t.Errorf("cap exhaustion must keep the last observed status, got %s", g.Status)
	}
}

func TestExecute_CreationFailsFast(t *testing.T) {
	cases := []struct {
		name   string
		runner *mockRunner
	}{
		{"assistant", &mockRunner{createAssistantErr: domain.NewJobCreationError("assistant", 500, "boom")}},
		{"thread", &mockRunner{createThreadErr: domain.NewJobCreationError("thread", 500, "boom")}},
		{"run", &mockRunner{createRunErr: domain.NewJobCreationError("run", 500, "boom")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newService(tc.runner)
			_, err := svc.Execute(context.Background(), "i", "q")
			if !errors.Is(err, domain.ErrJobCreation) {
				t.Fatalf("expected ErrJobCreation, got %v", err)
			}
			if tc.runner.retrieves != 0 {
				t.Error("no polling may happen after a creation failure")
			}
		})
	}
}

func TestExecute_TerminalPassthrough(t *testing.T) {
	// A failed run still flows into message retrieval; the backend may have
	// produced a partial answer.
	runner := &mockRunner{
		initialStatus: domain.StatusQueued,
		statuses:      []domain.RunStatus{domain.StatusFailed},
		message:       "partial",
	}
	svc := newService(runner)

	g, err := svc.Execute(context.Background(), "i", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.State != domain.Grounded || g.Text != "partial" {
		t.Errorf("unexpected grounding: %+v", g)
	}
	if g.Status != domain.StatusFailed {
		t.Errorf("expected failed status, got %s", g.Status)
	}
}

func TestExecute_NoMessageIsUngrounded(t *testing.T) {
	runner := &mockRunner{
		initialStatus: domain.StatusCompleted,
		messageErr:    domain.ErrNoAssistantMessage,
	}
	svc := newService(runner)

	g, err := svc.Execute(context.Background(), "i", "q")
	if err != nil {
		t.Fatalf("missing message must not be an error: %v", err)
	}
	if g.State != domain.Ungrounded {
		t.Fatalf("expected Ungrounded, got %v", g.State)
	}
}

func TestExecute_StatusRegressionIgnored(t *testing.T) {
	runner := &mockRunner{
		initialStatus: domain.StatusInProgress,
		statuses: []domain.RunStatus{
			domain.StatusQueued, // regression, must be dropped
			domain.StatusCompleted,
		},
		message: "done",
	}
	svc := newService(runner)

	g, err := svc.Execute(context.Background(), "i", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", g.Status)
	}
}
