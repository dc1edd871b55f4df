// Package health probes the vector store and the embedding provider.
package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the overall service state.
type Status string

const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentVectorStore = "vector_store"
	ComponentEmbedding   = "embedding"
)

// DefaultTimeout bounds each probe.
const DefaultTimeout = 3 * time.Second

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check is one probe's outcome.
type Check struct {
	Result  CheckResult
	Latency time.Duration
	Error   string
}

// Report aggregates the probes of a single Service.Check call.
type Report struct {
	Status Status
	Checks map[string]Check
}

// probe is a named check; a failing critical probe makes the service Unhealthy,
// any other failure only Degraded.
type probe struct {
	name     string
	critical bool
	run      func(ctx context.Context) error
}

// Service runs the probes concurrently, each under its own timeout.
type Service struct {
	probes  []probe
	timeout time.Duration
}

// New creates a Service. embedding can be nil.
func New(store StorePinger, embedding EmbeddingChecker) *Service {
	s := &Service{timeout: DefaultTimeout}
	s.probes = append(s.probes, probe{name: ComponentVectorStore, critical: true, run: store.Ping})
	if embedding != nil {
		s.probes = append(s.probes, probe{name: ComponentEmbedding, run: embedding.HealthCheck})
	}
	return s
}

// WithTimeout overrides the per-probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs every probe and folds the results into one status.
func (s *Service) Check(ctx context.Context) Report {
	checks := make([]Check, len(s.probes))

	// Probes report failures in their Check, so the group never returns an error.
	var g errgroup.Group
	for i, p := range s.probes {
		g.Go(func() error {
			checks[i] = s.run(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: Healthy, Checks: make(map[string]Check, len(s.probes))}
	for i, p := range s.probes {
		report.Checks[p.name] = checks[i]
		if checks[i].Result == CheckOK {
			continue
		}
		if p.critical {
			report.Status = Unhealthy
		} else if report.Status == Healthy {
			report.Status = Degraded
		}
	}
	return report
}

func (s *Service) run(ctx context.Context, p probe) Check {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := p.run(ctx)
	c := Check{Result: CheckOK, Latency: time.Since(start)}
	if err != nil {
		c.Result = CheckError
		c.Error = err.Error()
	}
	return c
}
