package logger

import (
	"context"
	"go/build"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

const requestIdAttr = "request_id"

var logFormat = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))

// ParseLevel maps LOG_LEVEL values onto slog levels. The second return value
// is false for unknown names, in which case debug is returned.
func ParseLevel(s string) (slog.Level, bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelDebug, false
	}

	return lvl, true
}

// SetupSLog installs the default logger. LOG_FORMAT picks text (default) or
// json output on stderr; source paths are reported relative to rootPath or
// GOPATH, and the request id stored under requestIdKey is attached to every
// record logged with a request context.
func SetupSLog(lvl slog.Level, rootPath string, requestIdKey any) {
	opts := &slog.HandlerOptions{Level: lvl}

	var base slog.Handler
	switch logFormat {
	case "", "text":
		base = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		base = slog.NewJSONHandler(os.Stderr, opts)
	default:
		slog.Error("LOG_FORMAT must be json or text")
		os.Exit(1)
	}

	gopath := os.Getenv("GOPATH")
	if gopath == "" {
		gopath = build.Default.GOPATH
	}

	slog.SetDefault(slog.New(&handler{
		base:         base,
		prefixes:     []string{withSlash(rootPath), withSlash(gopath)},
		requestIdKey: requestIdKey,
	}))
}

func withSlash(p string) string {
	return strings.TrimSuffix(p, "/") + "/"
}

type handler struct {
	base slog.Handler
	// prefixes are cut from source file paths, first match wins
	prefixes     []string
	requestIdKey any
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, record slog.Record) error {
	record = record.Clone()
	record.AddAttrs(slog.Any(slog.SourceKey, h.source(record.PC)))

	if id := h.requestId(ctx); id != "" {
		record.AddAttrs(slog.String(requestIdAttr, id))
	}

	return h.base.Handle(ctx, record)
}

func (h *handler) source(pc uintptr) *slog.Source {
	f, _ := runtime.CallersFrames([]uintptr{pc}).Next()

	file := f.File
	for _, prefix := range h.prefixes {
		if rest, ok := strings.CutPrefix(file, prefix); ok {
			file = rest
			break
		}
	}

	return &slog.Source{Function: f.Function, File: file, Line: f.Line}
}

func (h *handler) requestId(ctx context.Context) string {
	if ctx == nil || h.requestIdKey == nil {
		return ""
	}

	id, _ := ctx.Value(h.requestIdKey).(string)
	return id
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(h.base.WithAttrs(attrs))
}

func (h *handler) WithGroup(name string) slog.Handler {
	return h.with(h.base.WithGroup(name))
}

func (h *handler) with(base slog.Handler) *handler {
	return &handler{base: base, prefixes: h.prefixes, requestIdKey: h.requestIdKey}
}
