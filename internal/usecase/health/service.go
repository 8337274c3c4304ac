// Package health aggregates component probes into a service status.
package health

import (
	"context"
	"sync"
	"time"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

// Component names as reported in Report.Checks.
const (
	ComponentDatabase  = "database"
	ComponentEmbedding = "embedding"
)

// Status is the aggregated health of the service.
type Status string

const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded" // index up, embedding model down
	Unhealthy Status = "error"    // index unreachable
)

// CheckResult is the outcome of one component probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report is one aggregated health check.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service probes the vector index and, when configured, the embedding model.
type Service struct {
	index   IndexPinger
	model   ModelProbe
	timeout time.Duration
}

// New creates a Service. model may be nil; the embedding check is then omitted.
func New(index IndexPinger, model ModelProbe) *Service {
	return &Service{index: index, model: model, timeout: DefaultCheckTimeout}
}

// WithTimeout sets the per-component check timeout. Non-positive values are ignored.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check probes all components concurrently, each under its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	probes := map[string]func(context.Context) error{ComponentDatabase: s.index.Ping}
	if s.model != nil {
		probes[ComponentEmbedding] = s.model.HealthCheck
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(probes))
	)
	for name, probe := range probes {
		wg.Go(func() {
			res := s.run(ctx, probe)
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		})
	}
	wg.Wait()

	return Report{Status: aggregate(checks), Checks: checks}
}

func (s *Service) run(ctx context.Context, probe func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := probe(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}

// aggregate maps component results to a status. Retrieval is impossible
// without the index; without the model only new embeddings fail.
func aggregate(checks map[string]CheckResult) Status {
	switch {
	case checks[ComponentDatabase] != CheckOK:
		return Unhealthy
	case checks[ComponentEmbedding] == CheckError:
		return Degraded
	default:
		return Healthy
	}
}
