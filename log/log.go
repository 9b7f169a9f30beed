// Package log provides the structured logger used across the pipeline and
// the read service. It is a slog-backed reduction of go-ethereum's log
// package: the same Logger interface and level vocabulary (Trace through
// Crit), trimmed to what this module actually calls.
package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger writes structured key/value records at a given level.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	New(ctx ...interface{}) Logger
}

const levelTrace = slog.Level(-8)

type logger struct {
	inner *slog.Logger
}

// New creates a Logger carrying the given key/value pairs on every record.
func New(ctx ...interface{}) Logger {
	return &logger{inner: slog.Default().With(ctx...)}
}

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.inner.Log(context.Background(), levelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.inner.Debug(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.inner.Info(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.inner.Warn(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.inner.Error(msg, ctx...) }

// Crit logs at error level and then terminates the process, matching
// go-ethereum's log.Crit: the fail-fast primitive config and bootstrap
// errors are raised through.
func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.inner.Error(msg, ctx...)
	os.Exit(1)
}

var root atomic.Pointer[logger]

func init() {
	root.Store(&logger{inner: slog.Default()})
}

// Root returns the default package-level logger.
func Root() Logger { return root.Load() }

// SetDefault installs l as the package-level logger used by the
// top-level Trace/Debug/.../Crit functions.
func SetDefault(l Logger) {
	if impl, ok := l.(*logger); ok {
		root.Store(impl)
		return
	}
	root.Store(&logger{inner: slog.Default()})
}

// SetupDefault configures the root logger's level and output format.
// format is "json" or "terminal" (human-readable, the default).
func SetupDefault(level, format string) {
	var h slog.Handler
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	root.Store(&logger{inner: slog.New(h)})
}

func parseLevel(level string) slog.Level {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Trace(msg string, ctx ...interface{}) { Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { Root().Crit(msg, ctx...) }
