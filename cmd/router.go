package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/markdown-dms/backend/config"
	"github.com/markdown-dms/backend/internal/circuitbreaker"
	"github.com/markdown-dms/backend/internal/docs"
	"github.com/markdown-dms/backend/internal/handler"
	"github.com/markdown-dms/backend/internal/metrics"
	"github.com/markdown-dms/backend/internal/middleware"
)

const (
	healthPath    = "/health"
	apiHealthPath = "/api/health"
	metricsPath   = "/metrics"
)

var fixedPaths = []string{"/", healthPath, apiHealthPath, docs.JSONPath, docs.YAMLPath, metricsPath}

func setupRouter(
	cfg *config.Config,
	log *slog.Logger,
	checker handler.HealthChecker,
	collector *metrics.Collector,
	breakers *circuitbreaker.Registry,
) (http.Handler, error) {
	if slices.Contains(fixedPaths, cfg.Docs.DocsURL) || slices.Contains(fixedPaths, cfg.Docs.RedocURL) {
		return nil, fmt.Errorf("documentation paths %s and %s must not shadow an API route", cfg.Docs.DocsURL, cfg.Docs.RedocURL)
	}
	if cfg.Docs.DocsURL == cfg.Docs.RedocURL {
		return nil, fmt.Errorf("DOCS_URL and REDOC_URL must differ, both are %s", cfg.Docs.DocsURL)
	}

	h := handler.New(cfg, checker, log)
	d, err := docs.New(cfg)
	if err != nil {
		return nil, err
	}

	paths := append(slices.Clone(fixedPaths), cfg.Docs.DocsURL, cfg.Docs.RedocURL)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET "+healthPath, h.Health)
	mux.HandleFunc("GET "+apiHealthPath, h.DetailedHealth)
	mux.HandleFunc("GET "+docs.JSONPath, d.OpenAPIJSON)
	mux.HandleFunc("GET "+docs.YAMLPath, d.OpenAPIYAML)
	mux.HandleFunc("GET "+cfg.Docs.DocsURL, d.SwaggerUI)
	mux.HandleFunc("GET "+cfg.Docs.RedocURL, d.ReDoc)
	mux.HandleFunc("GET "+metricsPath, collector.Handler(breakers))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if slices.Contains(paths, r.URL.Path) {
			h.MethodNotAllowed(w, r)
			return
		}
		h.NotFound(w, r)
	})

	var root http.Handler = mux
	root = middleware.Metrics(collector, root)
	root = middleware.RateLimit(middleware.NewTokenBucket(cfg.RateLimit.RPS, cfg.RateLimit.Burst), []string{healthPath}, root)
	root = middleware.CORS(middleware.NewCORSPolicy(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders), root)
	root = middleware.Logging(log, root)
	root = middleware.Recovery(log, root)
	root = middleware.RequestID(root)

	return root, nil
}
