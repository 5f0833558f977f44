// Loadtest drives concurrent GET traffic against a running API and reports
// throughput, latency percentiles per path, status codes and rate-limited
// responses. It also checks that every response carried a distinct
// X-Request-ID.
//
// Usage:
//
//	go run ./cmd/loadtest --target http://localhost:8000 --path /api/health --path / -c 20 -n 2000
//	go run ./cmd/loadtest --target http://localhost:8000 --out summary.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/kingpin/v2"
)

type options struct {
	target      string
	paths       []string
	concurrency int
	requests    int
	timeout     time.Duration
}

type sample struct {
	path      string
	status    int
	duration  time.Duration
	requestID string
	err       error
}

type PathSummary struct {
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Failure     int     `json:"failure"`
	RateLimited int     `json:"rate_limited"`
	P50         float64 `json:"p50_ms"`
	P90         float64 `json:"p90_ms"`
	P95         float64 `json:"p95_ms"`
	P99         float64 `json:"p99_ms"`
}

type Summary struct {
	Target              string                 `json:"target"`
	Requests            int                    `json:"requests"`
	Concurrency         int                    `json:"concurrency"`
	Success             int                    `json:"success"`
	Failure             int                    `json:"failure"`
	RateLimited         int                    `json:"rate_limited"`
	DuplicateRequestIDs int                    `json:"duplicate_request_ids"`
	DurationMS          int64                  `json:"duration_ms"`
	ThroughputRPS       float64                `json:"throughput_rps"`
	StatusCodes         map[int]int            `json:"status_codes"`
	Paths               map[string]PathSummary `json:"paths"`
}

func main() {
	app := kingpin.New("loadtest", "Concurrent load generator for the document API")
	target := app.Flag("target", "Base URL of the API").Default("http://localhost:8000").String()
	paths := app.Flag("path", "Path to request, repeatable").Default("/api/health").Strings()
	concurrency := app.Flag("concurrency", "Number of concurrent workers").Short('c').Default("10").Int()
	requests := app.Flag("requests", "Total number of requests to send").Short('n').Default("100").Int()
	timeout := app.Flag("timeout", "Per-request timeout").Default("10s").Duration()
	outJSON := app.Flag("out", "Write JSON summary to this file").String()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := options{
		target:      strings.TrimSuffix(*target, "/"),
		paths:       *paths,
		concurrency: max(*concurrency, 1),
		requests:    *requests,
		timeout:     *timeout,
	}

	summary := runLoad(ctx, &http.Client{Timeout: opts.timeout}, opts)
	printSummary(os.Stdout, summary)

	if *outJSON != "" {
		if err := writeJSON(*outJSON, summary); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write json summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if summary.Failure > 0 || summary.DuplicateRequestIDs > 0 {
		os.Exit(2)
	}
}

func runLoad(ctx context.Context, client *http.Client, opts options) Summary {
	jobs := make(chan int)
	samples := make([]sample, 0, opts.requests)
	var mu sync.Mutex
	var wg sync.WaitGroup

	start := time.Now()
	for range opts.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				s := fetch(ctx, client, opts.target, opts.paths[idx%len(opts.paths)])
				mu.Lock()
				samples = append(samples, s)
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range opts.requests {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	summary := summarize(samples, time.Since(start))
	summary.Target = opts.target
	summary.Requests = opts.requests
	summary.Concurrency = opts.concurrency
	return summary
}

func fetch(ctx context.Context, client *http.Client, target, path string) sample {
	s := sample{path: path}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+path, nil)
	if err != nil {
		s.err = err
		return s
	}

	resp, err := client.Do(req)
	s.duration = time.Since(start)
	if err != nil {
		s.err = err
		return s
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	s.status = resp.StatusCode
	s.requestID = resp.Header.Get("X-Request-ID")
	return s
}

func summarize(samples []sample, elapsed time.Duration) Summary {
	summary := Summary{
		DurationMS:  elapsed.Milliseconds(),
		StatusCodes: make(map[int]int),
		Paths:       make(map[string]PathSummary),
	}
	if elapsed > 0 {
		summary.ThroughputRPS = float64(len(samples)) / elapsed.Seconds()
	}

	latencies := make(map[string][]time.Duration)
	seenIDs := make(map[string]struct{}, len(samples))

	for _, s := range samples {
		ps := summary.Paths[s.path]
		ps.Total++

		switch {
		case s.err != nil:
			ps.Failure++
			summary.Failure++
		case s.status == http.StatusTooManyRequests:
			ps.RateLimited++
			summary.RateLimited++
		case s.status >= 200 && s.status <= 299:
			ps.Success++
			summary.Success++
		default:
			ps.Failure++
			summary.Failure++
		}

		if s.err == nil {
			summary.StatusCodes[s.status]++
			latencies[s.path] = append(latencies[s.path], s.duration)

			if _, dup := seenIDs[s.requestID]; dup || s.requestID == "" {
				summary.DuplicateRequestIDs++
			}
			seenIDs[s.requestID] = struct{}{}
		}

		summary.Paths[s.path] = ps
	}

	for path, durations := range latencies {
		slices.Sort(durations)
		ps := summary.Paths[path]
		ps.P50 = millis(percentile(durations, 0.50))
		ps.P90 = millis(percentile(durations, 0.90))
		ps.P95 = millis(percentile(durations, 0.95))
		ps.P99 = millis(percentile(durations, 0.99))
		summary.Paths[path] = ps
	}

	return summary
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func printSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w, "--- Load Test Summary ---")
	fmt.Fprintf(w, "Target: %s\n", s.Target)
	fmt.Fprintf(w, "Requests: %d  Concurrency: %d\n", s.Requests, s.Concurrency)
	fmt.Fprintf(w, "Success: %d  Failure: %d  Rate limited: %d\n", s.Success, s.Failure, s.RateLimited)
	fmt.Fprintf(w, "Duration: %dms  Throughput: %.2f req/s\n", s.DurationMS, s.ThroughputRPS)
	if s.DuplicateRequestIDs > 0 {
		fmt.Fprintf(w, "Missing or duplicate request ids: %d\n", s.DuplicateRequestIDs)
	}

	fmt.Fprintln(w, "\nStatus codes:")
	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d -> %d\n", code, s.StatusCodes[code])
	}

	fmt.Fprintln(w, "\nPaths:")
	paths := make([]string, 0, len(s.Paths))
	for path := range s.Paths {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	for _, path := range paths {
		ps := s.Paths[path]
		fmt.Fprintf(w, "  %s -> total=%d success=%d failure=%d limited=%d p50=%.3fms p90=%.3fms p95=%.3fms p99=%.3fms\n",
			path, ps.Total, ps.Success, ps.Failure, ps.RateLimited, ps.P50, ps.P90, ps.P95, ps.P99)
	}
}

func writeJSON(path string, s Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
