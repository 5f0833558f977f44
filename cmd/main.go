package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"

	"github.com/markdown-dms/backend/config"
	"github.com/markdown-dms/backend/internal/circuitbreaker"
	"github.com/markdown-dms/backend/internal/healthcheck"
	"github.com/markdown-dms/backend/internal/httpserver"
	"github.com/markdown-dms/backend/internal/metrics"
	"github.com/markdown-dms/backend/internal/reload"
	"github.com/markdown-dms/backend/pkg/logger"
)

const (
	appName       = "mdms"
	metricsBuffer = 1024
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
)

var (
	signalNotifyContext = signal.NotifyContext
	restartProcess      = restart
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Environ()))
}

func run(args []string, stdout, stderr io.Writer, environ []string) int {
	app := kingpin.New(appName, "Markdown Document Management System API server")
	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)
	envFile := app.Flag("env-file", "KEY=VALUE override file, empty to disable").Default(config.DefaultEnvFile).String()
	serveCmd := app.Command("serve", "Run the API server").Default()
	configCmd := app.Command("config", "Validate and print the effective configuration")

	command, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return exitUsage
	}

	cfg, err := config.Load(config.WithEnvFile(*envFile), config.WithEnviron(environ))
	if err != nil {
		reportConfigError(stderr, err)
		return exitFailure
	}

	switch command {
	case configCmd.FullCommand():
		return printConfig(stdout, stderr, cfg)
	case serveCmd.FullCommand():
		log, closer := setupLogger(cfg, stdout)
		defer closer.Close()
		return serve(cfg, log, *envFile)
	default:
		return exitUsage
	}
}

func reportConfigError(w io.Writer, err error) {
	log := logger.New(w, logger.Options{Level: "ERROR", JSON: true, Name: appName})

	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		log.Error("Invalid configuration",
			slog.Any("keys", cfgErr.Keys()),
			slog.String("error", cfgErr.Error()))
		return
	}
	log.Error("Failed to load configuration", slog.Any("error", err))
}

func printConfig(stdout, stderr io.Writer, cfg *config.Config) int {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		fmt.Fprintf(stderr, "%s: encode configuration: %v\n", appName, err)
		return exitFailure
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintf(stderr, "%s: encode configuration: %v\n", appName, err)
		return exitFailure
	}
	return exitOK
}

// setupLogger renders the console template in debug mode and JSON to stdout
// plus the rotating log file otherwise.
func setupLogger(cfg *config.Config, stdout io.Writer) (*slog.Logger, io.Closer) {
	opts := logger.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Name:        cfg.App.Name,
		Environment: cfg.App.Environment,
	}

	if cfg.App.Debug || cfg.Logging.File == "" {
		opts.JSON = !cfg.App.Debug
		return logger.New(stdout, opts), nopCloser{}
	}

	file := logger.NewRotatingFile(cfg.Logging.File)
	opts.JSON = true
	return logger.New(io.MultiWriter(stdout, file), opts), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func serve(cfg *config.Config, log *slog.Logger, envFile string) int {
	ctx, stop := signalNotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting application",
		slog.String("log_level", cfg.Logging.Level),
		slog.Any("config", cfg))

	collector := metrics.NewCollector(metricsBuffer, log)
	collector.Start(ctx)

	breakers := circuitbreaker.NewRegistry(cfg.Health.BreakerThreshold, cfg.Health.BreakerReset)
	checkerOpts := []healthcheck.Option{
		healthcheck.WithTimeout(cfg.Health.Timeout),
		healthcheck.WithBreakers(breakers),
		healthcheck.WithCollector(collector),
	}

	if cfg.Health.Enabled {
		probes, err := healthcheck.NewProbes(ctx, cfg.Dependencies, &http.Client{Timeout: cfg.Health.Timeout})
		if err != nil {
			log.Error("Failed to create dependency probes", slog.Any("error", err))
			return exitFailure
		}
		defer probes.Close()
		checkerOpts = append(checkerOpts, probes.Options()...)
	}

	router, err := setupRouter(cfg, log, healthcheck.NewChecker(log, checkerOpts...), collector, breakers)
	if err != nil {
		log.Error("Failed to build router", slog.Any("error", err))
		return exitFailure
	}

	srv, err := httpserver.New(cfg.Addr(), router,
		httpserver.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout))
	if err != nil {
		log.Error("Failed to create server", slog.String("addr", cfg.Addr()), slog.Any("error", err))
		return exitFailure
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()

	restartCh, err := watchForRestart(ctx, cfg, log, envFile)
	if err != nil {
		log.Warn("Auto-reload disabled", slog.Any("error", err))
	}

	select {
	case <-srv.Ready():
		log.Info("Server listening",
			slog.String("addr", srv.Addr()),
			slog.String("state", string(srv.State())),
			slog.Bool("reload", cfg.EffectiveReload()))
	case err := <-srvErrCh:
		log.Error("Failed to start server", slog.String("addr", cfg.Addr()), slog.Any("error", err))
		return exitFailure
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully")
		shutdown(srv, cfg, log)
	case path := <-restartCh:
		log.Info("Restarting after file change", slog.String("path", path))
		shutdown(srv, cfg, log)
		if err := restartProcess(); err != nil {
			log.Error("Failed to restart", slog.Any("error", err))
			return exitFailure
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Server stopped unexpectedly", slog.Any("error", err))
			return exitFailure
		}
	}

	return exitOK
}

func shutdown(srv *httpserver.Server, cfg *config.Config, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("Graceful shutdown incomplete", slog.Any("error", err))
	}
}

// watchForRestart returns a channel receiving the first changed path when
// auto-reload is effective, or nil otherwise.
func watchForRestart(ctx context.Context, cfg *config.Config, log *slog.Logger, envFile string) (<-chan string, error) {
	if !cfg.EffectiveReload() {
		return nil, nil
	}

	paths := []string{envFile}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, exe)
	}

	w, err := reload.New(log, paths)
	if err != nil {
		return nil, err
	}

	ch := make(chan string, 1)
	go func() {
		defer w.Close()
		path, err := w.Run(ctx)
		if err != nil {
			return
		}
		ch <- path
	}()

	log.Info("Watching for changes", slog.Any("paths", paths))
	return ch, nil
}
