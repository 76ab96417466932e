// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the structured logger used by the library index.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with library-index specific helpers so that
// field names stay consistent across packages.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewText creates a Logger that writes human-readable text to w.
func NewText(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSON creates a Logger that writes JSON lines to w.
func NewJSON(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop creates a Logger that discards all output.
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// FromConfig builds a logger from the [log] config values. format is
// "text" or "json".
func FromConfig(level, format string, w io.Writer) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	switch strings.ToLower(format) {
	case "", "text":
		return NewText(w, lvl), nil
	case "json":
		return NewJSON(w, lvl), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// With returns a Logger with the given attributes added.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithRoot tags the logger with a library root.
func (l *Logger) WithRoot(root string) *Logger {
	return l.With("root", root)
}

// LogRescan logs the outcome of an index rebuild.
func (l *Logger) LogRescan(ctx context.Context, count, skipped int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "rescan failed",
			"duration", took,
			"error", err,
		)
		return
	}
	if skipped > 0 {
		l.WarnContext(ctx, "rescan completed with skipped elements",
			"elements", count,
			"skipped", skipped,
			"duration", took,
		)
		return
	}
	l.InfoContext(ctx, "rescan completed",
		"elements", count,
		"duration", took,
	)
}

// LogScanWarning logs a filesystem entry the scanner skipped.
func (l *Logger) LogScanWarning(ctx context.Context, path string, err error) {
	l.WarnContext(ctx, "skipping library entry",
		"path", path,
		"error", err,
	)
}

// LogSkippedElement logs an invalid element ignored in skip-invalid mode.
func (l *Logger) LogSkippedElement(ctx context.Context, path string, err error) {
	l.WarnContext(ctx, "skipping invalid element",
		"path", path,
		"error", err,
	)
}
