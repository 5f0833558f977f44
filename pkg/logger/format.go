package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

const timeLayout = "2006-01-02 15:04:05"

// FormatHandler renders records through a template using the placeholders
// %(asctime)s, %(name)s, %(levelname)s, %(message)s, %(pathname)s,
// %(lineno)d and %(funcName)s. Attributes follow the rendered template as
// key=value pairs.
type FormatHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	format string
	name   string
	opts   slog.HandlerOptions
	attrs  string
	prefix string
}

func NewFormatHandler(w io.Writer, format, name string, opts *slog.HandlerOptions) *FormatHandler {
	h := &FormatHandler{
		w:      w,
		mu:     &sync.Mutex{},
		format: format,
		name:   name,
	}
	if opts != nil {
		h.opts = *opts
	}
	if h.format == "" {
		h.format = "%(asctime)s - %(levelname)s - %(message)s"
	}
	return h
}

func (h *FormatHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *FormatHandler) Handle(_ context.Context, r slog.Record) error {
	var pathname, lineno, funcName string
	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		pathname, lineno, funcName = frame.File, strconv.Itoa(frame.Line), frame.Function
	}

	replacer := strings.NewReplacer(
		"%(asctime)s", r.Time.Format(timeLayout),
		"%(name)s", h.name,
		"%(levelname)s", LevelName(r.Level),
		"%(message)s", r.Message,
		"%(pathname)s", pathname,
		"%(lineno)d", lineno,
		"%(funcName)s", funcName,
	)

	var b strings.Builder
	b.WriteString(replacer.Replace(h.format))
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *FormatHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}

	clone := *h
	clone.attrs = b.String()
	return &clone
}

func (h *FormatHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, groupPrefix, ga)
		}
		return
	}

	value := fmt.Sprint(a.Value.Any())
	if value == "" || strings.ContainsAny(value, " \t\n\"=") {
		value = strconv.Quote(value)
	}

	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(value)
}
