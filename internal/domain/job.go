package domain

// RunStatus is the lifecycle state of a hosted generation job.
type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
	StatusExpired        RunStatus = "expired"
)

// Active reports whether the job still needs polling.
func (s RunStatus) Active() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusRequiresAction:
		return true
	}
	return false
}

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// rank orders statuses along the allowed forward direction.
// queued < {in_progress, requires_action} < terminal. The two middle states
// share a rank because a run may bounce between them.
func (s RunStatus) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusInProgress, StatusRequiresAction:
		return 1
	case StatusCompleted, StatusFailed, StatusExpired:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next respects the
// forward-only invariant. Terminal states absorb: no further transitions.
func (s RunStatus) CanAdvanceTo(next RunStatus) bool {
	if s.Terminal() {
		return false
	}
	if s.rank() < 0 || next.rank() < 0 {
		return false
	}
	return next.rank() >= s.rank()
}

// Job tracks one hosted generation job. Created per request, discarded once
// a terminal status is reached or the poll budget is exhausted.
type Job struct {
	ID       string
	ThreadID string
	RunID    string
	Status   RunStatus
}

// AdvanceTo moves the job to the next status, enforcing forward-only
// transitions. Re-observing the current status is a no-op.
func (j *Job) AdvanceTo(next RunStatus) error {
	if next == j.Status {
		return nil
	}
	if !j.Status.CanAdvanceTo(next) {
		return ErrInvalidStatusTransition
	}
	j.Status = next
	return nil
}
