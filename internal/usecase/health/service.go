package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Checker verifies one dependency.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Service coordinates health checks. Any checker can be nil; only
// configured dependencies are reported.
type Service struct {
	vectorStore Checker
	embedding   Checker
	cache       Checker
}

// New creates a Service.
func New(vectorStore, embedding, cache Checker) *Service {
	return &Service{vectorStore: vectorStore, embedding: embedding, cache: cache}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	run := func(name string, c Checker) {
		if c == nil {
			return
		}
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = CheckError
		} else {
			checks[name] = CheckOK
		}
	}

	run("vector_store", s.vectorStore)
	run("embedding", s.embedding)
	run("cache", s.cache)

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
