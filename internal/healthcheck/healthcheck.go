package healthcheck

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdown-dms/backend/internal/circuitbreaker"
	"github.com/markdown-dms/backend/internal/metrics"
)

type Status string

const (
	StatusHealthy        Status = "healthy"
	StatusDegraded       Status = "degraded"
	StatusUnhealthy      Status = "unhealthy"
	StatusNotImplemented Status = "not_implemented"
)

const (
	CheckDatabase   = "database"
	CheckRedis      = "redis"
	CheckGitService = "git_service"
)

// CheckNames lists the reported checks in response order.
var CheckNames = []string{CheckDatabase, CheckRedis, CheckGitService}

const DefaultTimeout = 2 * time.Second

// Probe reports whether a dependency is reachable.
type Probe interface {
	Check(ctx context.Context) error
}

type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Check(ctx context.Context) error {
	return f(ctx)
}

type Report struct {
	Status Status
	Checks map[string]Status
}

type Checker struct {
	probes    map[string]Probe
	timeout   time.Duration
	breakers  *circuitbreaker.Registry
	collector *metrics.Collector
	logger    *slog.Logger
}

type Option func(*Checker)

// WithProbe installs the probe for a named check. Names outside CheckNames
// are ignored by Check.
func WithProbe(name string, probe Probe) Option {
	return func(c *Checker) {
		if probe != nil {
			c.probes[name] = probe
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithBreakers(registry *circuitbreaker.Registry) Option {
	return func(c *Checker) {
		c.breakers = registry
	}
}

func WithCollector(collector *metrics.Collector) Option {
	return func(c *Checker) {
		c.collector = collector
	}
}

func NewChecker(logger *slog.Logger, opts ...Option) *Checker {
	c := &Checker{
		probes:  make(map[string]Probe),
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check runs every configured probe and waits for the slowest one or its
// timeout. It never fails: probe errors become unhealthy entries.
func (c *Checker) Check(ctx context.Context) Report {
	results := make([]Status, len(CheckNames))

	var g errgroup.Group
	for i, name := range CheckNames {
		g.Go(func() error {
			results[i] = c.run(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]Status, len(CheckNames))
	for i, name := range CheckNames {
		checks[name] = results[i]
	}

	return Report{
		Status: Aggregate(checks),
		Checks: checks,
	}
}

func (c *Checker) run(ctx context.Context, name string) Status {
	probe, ok := c.probes[name]
	if !ok {
		return StatusNotImplemented
	}

	var cb *circuitbreaker.CircuitBreaker
	if c.breakers != nil {
		cb = c.breakers.GetBreaker(name)
		if !cb.Allow() {
			c.logger.Debug("Skipping probe, circuit open", slog.String("check", name))
			c.record(name, StatusUnhealthy, 0)
			return StatusUnhealthy
		}
	}

	start := time.Now()
	err := c.probe(ctx, probe)
	duration := time.Since(start)

	status := StatusHealthy
	if err != nil {
		status = StatusUnhealthy
		c.logger.Warn("Dependency check failed",
			slog.String("check", name),
			slog.Duration("duration", duration),
			slog.Any("error", err))
	}

	if cb != nil {
		if err != nil {
			cb.RecordFailure()
		} else {
			cb.RecordSuccess()
		}
	}

	c.record(name, status, duration)
	return status
}

func (c *Checker) probe(ctx context.Context, probe Probe) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("probe panicked: %v", r)
			}
		}()
		done <- probe.Check(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Checker) record(name string, status Status, duration time.Duration) {
	if c.collector == nil {
		return
	}
	c.collector.Emit(metrics.MetricEvent{
		Type:     metrics.EventProbeCompleted,
		Check:    name,
		Status:   string(status),
		Duration: duration,
	})
}

// Aggregate derives the overall status. Checks that are not implemented do
// not count against health.
func Aggregate(checks map[string]Status) Status {
	var implemented, unhealthy int
	for _, status := range checks {
		switch status {
		case StatusNotImplemented:
			continue
		case StatusHealthy:
			implemented++
		default:
			implemented++
			unhealthy++
		}
	}

	switch {
	case unhealthy == 0:
		return StatusHealthy
	case unhealthy == implemented:
		return StatusUnhealthy
	default:
		return StatusDegraded
	}
}
