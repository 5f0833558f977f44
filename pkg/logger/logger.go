package logger

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelCritical sits above slog.LevelError for failures that stop the process.
const LevelCritical = slog.Level(12)

const (
	rotateMaxSizeMB  = 10
	rotateMaxBackups = 5
)

// Options selects the handler and level of a logger built by New.
type Options struct {
	Level       string
	Format      string
	Name        string
	Environment string
	JSON        bool
	AddSource   bool
}

// New returns a logger writing to w. JSON output is used when opts.JSON is
// set, otherwise records are rendered through opts.Format.
func New(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{
		Level:       ParseLevel(opts.Level),
		AddSource:   opts.AddSource,
		ReplaceAttr: replaceLevel,
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = NewFormatHandler(w, opts.Format, opts.Name, handlerOpts)
	}

	log := slog.New(handler)
	if opts.JSON && opts.Name != "" {
		log = log.With(slog.String("logger", opts.Name))
	}

	return log.With(
		slog.String("environment", opts.Environment),
	)
}

// NewRotatingFile opens a size-rotated log file.
func NewRotatingFile(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotateMaxSizeMB,
		MaxBackups: rotateMaxBackups,
	}
}

// ParseLevel maps DEBUG, INFO, WARNING, ERROR and CRITICAL (any case) onto
// slog levels. Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// LevelName is the upper-case name printed for a level.
func LevelName(level slog.Level) string {
	switch {
	case level >= LevelCritical:
		return "CRITICAL"
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARNING"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}
