package ragfile

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with ragfile-specific helpers.
// This keeps field names consistent across writers and readers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogSection logs a section append.
func (l *Logger) LogSection(name string, records, size int, err error) {
	if err != nil {
		l.Error("section write failed",
			"section", name,
			"records", records,
			"error", err,
		)
		return
	}
	l.Debug("section written",
		"section", name,
		"records", records,
		"bytes", size,
	)
}

// LogFinalize logs the final flush of a container.
func (l *Logger) LogFinalize(ctx context.Context, dest string, size int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "finalize failed",
			"dest", dest,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "container finalized",
		"dest", dest,
		"bytes", size,
		"elapsed", elapsed,
	)
}

// LogOpen logs opening a container for reading.
func (l *Logger) LogOpen(source string, sections int, err error) {
	if err != nil {
		l.Error("open failed",
			"source", source,
			"error", err,
		)
		return
	}
	l.Debug("container opened",
		"source", source,
		"sections", sections,
	)
}

// LogSearch logs a section lookup.
func (l *Logger) LogSearch(section string, results int, scanned uint64, err error) {
	if err != nil {
		l.Error("search failed",
			"section", section,
			"error", err,
		)
		return
	}
	l.Debug("search completed",
		"section", section,
		"results", results,
		"scanned_bytes", scanned,
	)
}
