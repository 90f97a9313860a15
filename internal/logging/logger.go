// Package logging provides the structured logger used across siftcluster.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with clustering-specific fields and helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON lines to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that writes human-readable lines to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRun adds the (k, repetition) pair of a single clustering run.
func (l *Logger) WithRun(k, repetition int) *Logger {
	return &Logger{Logger: l.Logger.With("k", k, "repetition", repetition)}
}

// WithSearch adds the search id shared by all runs of one search.
func (l *Logger) WithSearch(id string) *Logger {
	return &Logger{Logger: l.Logger.With("search", id)}
}

// LogRun logs the outcome of one clustering run.
func (l *Logger) LogRun(ctx context.Context, iterations int, score float64, trivial bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "clustering run failed",
			"iterations", iterations,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "clustering run completed",
		"iterations", iterations,
		"error_score", score,
		"trivial", trivial,
	)
}

// LogSearch logs the outcome of a configuration search.
func (l *Logger) LogSearch(ctx context.Context, features, configurations int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "configuration search failed",
			"features", features,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "configuration search completed",
		"features", features,
		"configurations", configurations,
	)
}

// LogSelection logs which configuration the validity index picked.
func (l *Logger) LogSelection(ctx context.Context, index string, k, repetition int, score float64) {
	l.InfoContext(ctx, "best configuration selected",
		"index", index,
		"k", k,
		"repetition", repetition,
		"score", score,
	)
}
