package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/markdown-dms/backend/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("RecordRequest", func() {
		It("should count requests per route", func() {
			m.RecordRequest("GET /health", time.Millisecond, 200)
			m.RecordRequest("GET /health", time.Millisecond, 200)
			m.RecordRequest("GET /{$}", time.Millisecond, 200)

			snap := m.Snapshot()
			Expect(snap.TotalRequests).To(Equal(int64(3)))
			Expect(snap.Routes["GET /health"].Requests).To(Equal(int64(2)))
			Expect(snap.Routes["GET /{$}"].Requests).To(Equal(int64(1)))
		})

		It("should track different status codes", func() {
			m.RecordRequest("GET /health", time.Millisecond, 200)
			m.RecordRequest("GET /health", time.Millisecond, 429)
			m.RecordRequest("GET /health", time.Millisecond, 429)

			codes := m.Snapshot().Routes["GET /health"].StatusCodes
			Expect(codes).To(Equal(map[int]int64{200: 1, 429: 2}))
		})

		It("should calculate percentiles correctly", func() {
			for i := 1; i <= 100; i++ {
				m.RecordRequest("GET /api/health", time.Duration(i)*time.Millisecond, 200)
			}

			route := m.Snapshot().Routes["GET /api/health"]
			Expect(route.P50Response).To(BeNumerically("~", 50*time.Millisecond, time.Millisecond))
			Expect(route.P95Response).To(BeNumerically("~", 95*time.Millisecond, time.Millisecond))
			Expect(route.P99Response).To(BeNumerically("~", 99*time.Millisecond, time.Millisecond))
		})

		It("should keep only the most recent samples", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordRequest("GET /health", time.Duration(i)*time.Millisecond, 200)
			}

			route := m.Snapshot().Routes["GET /health"]
			Expect(route.Requests).To(Equal(int64(1500)))
			Expect(route.AvgResponse).To(BeNumerically(">", 500*time.Millisecond))
		})
	})

	Describe("RecordProbe", func() {
		It("should track runs and the last outcome per check", func() {
			m.RecordProbe("database", "healthy", 4*time.Millisecond)
			m.RecordProbe("database", "unhealthy", 2*time.Second)

			check := m.Snapshot().Checks["database"]
			Expect(check.Runs).To(Equal(int64(2)))
			Expect(check.LastStatus).To(Equal("unhealthy"))
			Expect(check.LastDuration).To(Equal(2 * time.Second))
			Expect(check.Statuses).To(Equal(map[string]int64{"healthy": 1, "unhealthy": 1}))
		})
	})

	Describe("Snapshot", func() {
		It("should include uptime", func() {
			Eventually(func() time.Duration {
				return m.Snapshot().Uptime
			}).Should(BeNumerically(">", 0))
		})

		It("should handle empty metrics", func() {
			snap := m.Snapshot()

			Expect(snap.TotalRequests).To(BeZero())
			Expect(snap.Routes).To(BeEmpty())
			Expect(snap.Checks).To(BeEmpty())
		})

		It("should return independent snapshots", func() {
			m.RecordRequest("GET /health", time.Millisecond, 200)
			snap1 := m.Snapshot()

			m.RecordRequest("GET /health", time.Millisecond, 200)
			snap2 := m.Snapshot()

			Expect(snap1.TotalRequests).To(Equal(int64(1)))
			Expect(snap1.Routes["GET /health"].StatusCodes[200]).To(Equal(int64(1)))
			Expect(snap2.TotalRequests).To(Equal(int64(2)))
		})
	})
})
