package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/markdown-dms/backend/config"
	"github.com/markdown-dms/backend/internal/healthcheck"
)

const (
	ServiceMessage = "Markdown Document Management System API"
	StatusRunning  = "running"

	// TimestampLayout is ISO-8601 UTC with microseconds.
	TimestampLayout = "2006-01-02T15:04:05.000000Z"
)

// HealthChecker produces the dependency report for the readiness endpoint.
type HealthChecker interface {
	Check(ctx context.Context) healthcheck.Report
}

type RootResponse struct {
	Message  string `json:"message"`
	Version  string `json:"version"`
	Status   string `json:"status"`
	DocsURL  string `json:"docs_url"`
	RedocURL string `json:"redoc_url"`
}

type HealthResponse struct {
	Status      healthcheck.Status `json:"status"`
	Application string             `json:"application"`
	Version     string             `json:"version"`
	Environment string             `json:"environment"`
	Timestamp   string             `json:"timestamp"`
}

// Checks keeps the response order database, redis, git_service.
type Checks struct {
	Database   healthcheck.Status `json:"database"`
	Redis      healthcheck.Status `json:"redis"`
	GitService healthcheck.Status `json:"git_service"`
}

type DetailedHealthResponse struct {
	Status      healthcheck.Status `json:"status"`
	Checks      Checks             `json:"checks"`
	Version     string             `json:"version"`
	Environment string             `json:"environment"`
	Timestamp   string             `json:"timestamp"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type Handler struct {
	cfg     *config.Config
	checker HealthChecker
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Handler)

func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

func New(cfg *config.Config, checker HealthChecker, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		cfg:     cfg,
		checker: checker,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, RootResponse{
		Message:  ServiceMessage,
		Version:  h.cfg.App.Version,
		Status:   StatusRunning,
		DocsURL:  h.cfg.Docs.DocsURL,
		RedocURL: h.cfg.Docs.RedocURL,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:      healthcheck.StatusHealthy,
		Application: h.cfg.App.Name,
		Version:     h.cfg.App.Version,
		Environment: h.cfg.App.Environment,
		Timestamp:   h.timestamp(),
	})
}

func (h *Handler) DetailedHealth(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())

	if report.Status != healthcheck.StatusHealthy {
		h.logger.Warn("Dependency health degraded",
			slog.String("status", string(report.Status)),
			slog.Any("checks", report.Checks))
	}

	h.writeJSON(w, http.StatusOK, DetailedHealthResponse{
		Status: report.Status,
		Checks: Checks{
			Database:   report.Checks[healthcheck.CheckDatabase],
			Redis:      report.Checks[healthcheck.CheckRedis],
			GitService: report.Checks[healthcheck.CheckGitService],
		},
		Version:     h.cfg.App.Version,
		Environment: h.cfg.App.Environment,
		Timestamp:   h.timestamp(),
	})
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "Not Found"})
}

// MethodNotAllowed answers requests for a known path with an unsupported
// method. Every route of the API is read-only.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	h.writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method Not Allowed"})
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(TimestampLayout)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", slog.Any("error", err))
	}
}
