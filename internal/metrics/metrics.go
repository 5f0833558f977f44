package metrics

import (
	"maps"
	"slices"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	probes        map[string]map[string]int64
	lastStatus    map[string]string
	probeTimes    map[string]time.Duration
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                   `json:"total_requests"`
	Uptime        time.Duration           `json:"uptime"`
	DroppedEvents int64                   `json:"dropped_events"`
	Routes        map[string]RouteMetrics `json:"routes"`
	Checks        map[string]CheckMetrics `json:"checks"`
	Breakers      map[string]string       `json:"breakers,omitempty"`
}

type RouteMetrics struct {
	Requests    int64         `json:"requests"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

type CheckMetrics struct {
	Runs         int64            `json:"runs"`
	LastStatus   string           `json:"last_status"`
	LastDuration time.Duration    `json:"last_duration"`
	Statuses     map[string]int64 `json:"statuses"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		probes:        make(map[string]map[string]int64),
		lastStatus:    make(map[string]string),
		probeTimes:    make(map[string]time.Duration),
		startTime:     time.Now(),
	}
}

// RecordRequest counts one served request against its route pattern.
func (m *Metrics) RecordRequest(route string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.requests[route]++

	m.responseTimes[route] = append(m.responseTimes[route], duration)
	if len(m.responseTimes[route]) > maxSamples {
		m.responseTimes[route] = m.responseTimes[route][1:]
	}

	if m.statusCodes[route] == nil {
		m.statusCodes[route] = make(map[int]int64)
	}
	m.statusCodes[route][statusCode]++
}

func (m *Metrics) RecordProbe(check, status string, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.probes[check] == nil {
		m.probes[check] = make(map[string]int64)
	}
	m.probes[check][status]++
	m.lastStatus[check] = status
	m.probeTimes[check] = duration
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime: time.Since(m.startTime),
		Routes: make(map[string]RouteMetrics, len(m.requests)),
		Checks: make(map[string]CheckMetrics, len(m.probes)),
	}

	for route, count := range m.requests {
		snap.TotalRequests += count

		rm := RouteMetrics{
			Requests:    count,
			StatusCodes: maps.Clone(m.statusCodes[route]),
		}

		if durations := m.responseTimes[route]; len(durations) > 0 {
			sorted := slices.Clone(durations)
			slices.Sort(sorted)

			rm.AvgResponse = average(sorted)
			rm.P50Response = percentile(sorted, 0.50)
			rm.P95Response = percentile(sorted, 0.95)
			rm.P99Response = percentile(sorted, 0.99)
		}

		snap.Routes[route] = rm
	}

	for check, statuses := range m.probes {
		cm := CheckMetrics{
			LastStatus:   m.lastStatus[check],
			LastDuration: m.probeTimes[check],
			Statuses:     maps.Clone(statuses),
		}
		for _, n := range statuses {
			cm.Runs += n
		}
		snap.Checks[check] = cm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
