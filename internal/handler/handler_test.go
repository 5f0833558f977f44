package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/markdown-dms/backend/config"
	"github.com/markdown-dms/backend/internal/handler"
	"github.com/markdown-dms/backend/internal/healthcheck"
)

type stubChecker struct {
	report healthcheck.Report
	calls  int
}

func (s *stubChecker) Check(context.Context) healthcheck.Report {
	s.calls++
	return s.report
}

var _ = Describe("Handler", func() {
	var (
		h       *handler.Handler
		cfg     *config.Config
		checker *stubChecker
		clock   time.Time
	)

	BeforeEach(func() {
		var err error
		cfg, err = config.Load(config.WithEnvFile(""), config.WithEnviron([]string{"ENVIRONMENT=staging"}))
		Expect(err).NotTo(HaveOccurred())

		checker = &stubChecker{report: healthcheck.NewChecker(slog.New(slog.NewTextHandler(io.Discard, nil))).Check(context.Background())}
		clock = time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.FixedZone("CET", 3600))
		h = handler.New(cfg, checker, slog.New(slog.NewTextHandler(io.Discard, nil)), handler.WithClock(func() time.Time { return clock }))
	})

	serve := func(fn http.HandlerFunc, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		fn(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	Describe("Root", func() {
		It("should describe the service", func() {
			rec := serve(h.Root, "/")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(rec.Body.String()).To(MatchJSON(`{
				"message": "Markdown Document Management System API",
				"version": "0.1.0",
				"status": "running",
				"docs_url": "/docs",
				"redoc_url": "/redoc"
			}`))
		})
	})

	Describe("Root version", func() {
		DescribeTable("should follow the configured version",
			func(environ []string, version string) {
				cfg, err := config.Load(config.WithEnvFile(""), config.WithEnviron(environ))
				Expect(err).NotTo(HaveOccurred())
				rec := serve(handler.New(cfg, checker, slog.New(slog.NewTextHandler(io.Discard, nil))).Root, "/")

				var body handler.RootResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
				Expect(body.Version).To(Equal(version))
			},
			Entry("defaults", []string{}, "0.1.0"),
			Entry("other keys changed", []string{
				"APP_VERSION=2.4.1",
				"DOCS_URL=/api-docs",
				"ENVIRONMENT=testing",
				"APP_NAME=Docs",
			}, "2.4.1"),
		)
	})

	Describe("Health", func() {
		It("should stamp the wall clock in UTC by default", func() {
			h = handler.New(cfg, checker, slog.New(slog.NewTextHandler(io.Discard, nil)))
			before := time.Now()
			rec := serve(h.Health, "/health")

			var body handler.HealthResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Timestamp).To(HaveSuffix("Z"))
			ts, err := time.Parse(handler.TimestampLayout, body.Timestamp)
			Expect(err).NotTo(HaveOccurred())
			Expect(ts.Location()).To(Equal(time.UTC))
			Expect(ts).To(BeTemporally("~", before, 2*time.Second))
		})

		It("should report liveness without checking dependencies", func() {
			rec := serve(h.Health, "/health")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{
				"status": "healthy",
				"application": "Markdown Document Management System",
				"version": "0.1.0",
				"environment": "staging",
				"timestamp": "2024-03-09T13:05:07.123456Z"
			}`))
			Expect(checker.calls).To(BeZero())
		})
	})

	Describe("DetailedHealth", func() {
		It("should report not_implemented checks by default", func() {
			rec := serve(h.DetailedHealth, "/api/health")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{
				"status": "healthy",
				"checks": {
					"database": "not_implemented",
					"redis": "not_implemented",
					"git_service": "not_implemented"
				},
				"version": "0.1.0",
				"environment": "staging",
				"timestamp": "2024-03-09T13:05:07.123456Z"
			}`))
		})

		It("should keep the check order in the body", func() {
			rec := serve(h.DetailedHealth, "/api/health")

			Expect(rec.Body.String()).To(MatchRegexp(`"database".*"redis".*"git_service"`))
		})

		It("should answer 200 even when dependencies fail", func() {
			checker.report = healthcheck.Report{
				Status: healthcheck.StatusUnhealthy,
				Checks: map[string]healthcheck.Status{
					"database":    healthcheck.StatusUnhealthy,
					"redis":       healthcheck.StatusUnhealthy,
					"git_service": healthcheck.StatusNotImplemented,
				},
			}

			rec := serve(h.DetailedHealth, "/api/health")

			Expect(rec.Code).To(Equal(http.StatusOK))
			var body handler.DetailedHealthResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Status).To(Equal(healthcheck.StatusUnhealthy))
			Expect(body.Checks.Database).To(Equal(healthcheck.StatusUnhealthy))
			Expect(body.Checks.GitService).To(Equal(healthcheck.StatusNotImplemented))
		})
	})

	Describe("NotFound", func() {
		It("should answer a JSON detail", func() {
			rec := serve(h.NotFound, "/missing")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(rec.Body.String()).To(MatchJSON(`{"detail":"Not Found"}`))
		})
	})

	Describe("MethodNotAllowed", func() {
		It("should answer a JSON detail with the allowed methods", func() {
			rec := serve(h.MethodNotAllowed, "/health")

			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
			Expect(rec.Header().Get("Allow")).To(Equal("GET, HEAD"))
			Expect(rec.Body.String()).To(MatchJSON(`{"detail":"Method Not Allowed"}`))
		})
	})

	It("should format timestamps in UTC with microseconds", func() {
		ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).Format(handler.TimestampLayout)
		Expect(ts).To(Equal("2025-01-02T03:04:05.000000Z"))
	})
})
