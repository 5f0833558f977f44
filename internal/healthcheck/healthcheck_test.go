package healthcheck_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/markdown-dms/backend/internal/circuitbreaker"
	"github.com/markdown-dms/backend/internal/healthcheck"
	"github.com/markdown-dms/backend/internal/metrics"
)

var errDown = errors.New("connection refused")

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errDown }

func hanging(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

var _ = Describe("Checker", func() {
	var (
		log *slog.Logger
		ctx context.Context
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx = context.Background()
	})

	Describe("Check", func() {
		It("should report not_implemented for every check without probes", func() {
			report := healthcheck.NewChecker(log).Check(ctx)

			Expect(report.Status).To(Equal(healthcheck.StatusHealthy))
			Expect(report.Checks).To(Equal(map[string]healthcheck.Status{
				"database":    healthcheck.StatusNotImplemented,
				"redis":       healthcheck.StatusNotImplemented,
				"git_service": healthcheck.StatusNotImplemented,
			}))
		})

		It("should report each probe outcome", func() {
			checker := healthcheck.NewChecker(log,
				healthcheck.WithProbe(healthcheck.CheckDatabase, healthcheck.ProbeFunc(ok)),
				healthcheck.WithProbe(healthcheck.CheckRedis, healthcheck.ProbeFunc(failing)),
			)

			report := checker.Check(ctx)

			Expect(report.Checks["database"]).To(Equal(healthcheck.StatusHealthy))
			Expect(report.Checks["redis"]).To(Equal(healthcheck.StatusUnhealthy))
			Expect(report.Checks["git_service"]).To(Equal(healthcheck.StatusNotImplemented))
			Expect(report.Status).To(Equal(healthcheck.StatusDegraded))
		})

		It("should bound a hanging probe by the timeout", func() {
			checker := healthcheck.NewChecker(log,
				healthcheck.WithTimeout(50*time.Millisecond),
				healthcheck.WithProbe(healthcheck.CheckGitService, healthcheck.ProbeFunc(hanging)),
				healthcheck.WithProbe(healthcheck.CheckDatabase, healthcheck.ProbeFunc(ok)),
			)

			start := time.Now()
			report := checker.Check(ctx)

			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
			Expect(report.Checks["git_service"]).To(Equal(healthcheck.StatusUnhealthy))
			Expect(report.Checks["database"]).To(Equal(healthcheck.StatusHealthy))
		})

		It("should bound a probe that ignores its context", func() {
			release := make(chan struct{})
			defer close(release)

			checker := healthcheck.NewChecker(log,
				healthcheck.WithTimeout(50*time.Millisecond),
				healthcheck.WithProbe(healthcheck.CheckRedis, healthcheck.ProbeFunc(func(context.Context) error {
					<-release
					return nil
				})),
			)

			Expect(checker.Check(ctx).Checks["redis"]).To(Equal(healthcheck.StatusUnhealthy))
		})

		It("should turn a panicking probe into an unhealthy check", func() {
			checker := healthcheck.NewChecker(log,
				healthcheck.WithProbe(healthcheck.CheckDatabase, healthcheck.ProbeFunc(func(context.Context) error {
					panic("driver bug")
				})),
			)

			report := checker.Check(ctx)

			Expect(report.Checks["database"]).To(Equal(healthcheck.StatusUnhealthy))
			Expect(report.Status).To(Equal(healthcheck.StatusUnhealthy))
		})

		It("should run probes concurrently", func() {
			slow := healthcheck.ProbeFunc(func(context.Context) error {
				time.Sleep(100 * time.Millisecond)
				return nil
			})
			checker := healthcheck.NewChecker(log,
				healthcheck.WithProbe(healthcheck.CheckDatabase, slow),
				healthcheck.WithProbe(healthcheck.CheckRedis, slow),
				healthcheck.WithProbe(healthcheck.CheckGitService, slow),
			)

			start := time.Now()
			report := checker.Check(ctx)

			Expect(time.Since(start)).To(BeNumerically("<", 250*time.Millisecond))
			Expect(report.Status).To(Equal(healthcheck.StatusHealthy))
		})

		It("should ignore probes for unknown checks", func() {
			checker := healthcheck.NewChecker(log,
				healthcheck.WithProbe("search", healthcheck.ProbeFunc(failing)),
			)

			report := checker.Check(ctx)

			Expect(report.Checks).NotTo(HaveKey("search"))
			Expect(report.Status).To(Equal(healthcheck.StatusHealthy))
		})
	})

	Describe("circuit breaking", func() {
		It("should stop probing an open dependency", func() {
			var calls atomic.Int32
			registry := circuitbreaker.NewRegistry(2, time.Hour)
			checker := healthcheck.NewChecker(log,
				healthcheck.WithBreakers(registry),
				healthcheck.WithProbe(healthcheck.CheckDatabase, healthcheck.ProbeFunc(func(context.Context) error {
					calls.Add(1)
					return errDown
				})),
			)

			for range 4 {
				Expect(checker.Check(ctx).Checks["database"]).To(Equal(healthcheck.StatusUnhealthy))
			}

			Expect(calls.Load()).To(Equal(int32(2)))
			Expect(registry.Stats()).To(HaveKeyWithValue("database", circuitbreaker.StateOpen))
		})

		It("should close again after a healthy probe", func() {
			registry := circuitbreaker.NewRegistry(3, time.Hour)
			var fail atomic.Bool
			fail.Store(true)
			checker := healthcheck.NewChecker(log,
				healthcheck.WithBreakers(registry),
				healthcheck.WithProbe(healthcheck.CheckRedis, healthcheck.ProbeFunc(func(context.Context) error {
					if fail.Load() {
						return errDown
					}
					return nil
				})),
			)

			checker.Check(ctx)
			fail.Store(false)

			Expect(checker.Check(ctx).Checks["redis"]).To(Equal(healthcheck.StatusHealthy))
			Expect(registry.Stats()).To(HaveKeyWithValue("redis", circuitbreaker.StateClosed))
		})
	})

	Describe("metrics", func() {
		It("should emit one probe event per implemented check", func() {
			collector := metrics.NewCollector(10, log)
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			collector.Start(runCtx)

			checker := healthcheck.NewChecker(log,
				healthcheck.WithCollector(collector),
				healthcheck.WithProbe(healthcheck.CheckDatabase, healthcheck.ProbeFunc(ok)),
				healthcheck.WithProbe(healthcheck.CheckRedis, healthcheck.ProbeFunc(failing)),
			)
			checker.Check(ctx)

			Eventually(func() map[string]metrics.CheckMetrics {
				return collector.Snapshot().Checks
			}).Should(HaveLen(2))

			snap := collector.Snapshot()
			Expect(snap.Checks["database"].LastStatus).To(Equal("healthy"))
			Expect(snap.Checks["redis"].LastStatus).To(Equal("unhealthy"))
		})
	})
})

var _ = Describe("Aggregate", func() {
	const (
		healthy        = healthcheck.StatusHealthy
		unhealthy      = healthcheck.StatusUnhealthy
		notImplemented = healthcheck.StatusNotImplemented
	)

	DescribeTable("derives the overall status",
		func(db, redis, git, expected healthcheck.Status) {
			Expect(healthcheck.Aggregate(map[string]healthcheck.Status{
				"database":    db,
				"redis":       redis,
				"git_service": git,
			})).To(Equal(expected))
		},
		Entry("all not implemented", notImplemented, notImplemented, notImplemented, healthy),
		Entry("all healthy", healthy, healthy, healthy, healthy),
		Entry("healthy and not implemented", healthy, notImplemented, notImplemented, healthy),
		Entry("one failing", healthy, unhealthy, healthy, healthcheck.StatusDegraded),
		Entry("all implemented failing", unhealthy, unhealthy, notImplemented, unhealthy),
		Entry("all failing", unhealthy, unhealthy, unhealthy, unhealthy),
	)
})
