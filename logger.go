package mmaplog

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with store-specific context.
// This provides structured logging with consistent field names.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogOpen logs opening or creating a store.
func (l *Logger) LogOpen(ctx context.Context, size, writePointer int64, created bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "store opened",
		"size", size,
		"write_pointer", writePointer,
		"created", created,
	)
}

// LogGrow logs a growth of the file and mapping.
func (l *Logger) LogGrow(ctx context.Context, oldSize, newSize int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "grow failed",
			"old_size", oldSize,
			"new_size", newSize,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "store grown",
		"old_size", oldSize,
		"new_size", newSize,
	)
}

// LogCommit logs a flush of the write pointer.
func (l *Logger) LogCommit(ctx context.Context, writePointer int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "commit failed",
			"write_pointer", writePointer,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "commit completed",
		"write_pointer", writePointer,
	)
}

// LogClose logs closing a store.
func (l *Logger) LogClose(ctx context.Context, writePointer int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "close completed with errors",
			"write_pointer", writePointer,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "store closed",
		"write_pointer", writePointer,
	)
}

// LogArchive logs an archive upload.
func (l *Logger) LogArchive(ctx context.Context, info ArchiveInfo, err error) {
	if err != nil {
		l.ErrorContext(ctx, "archive failed",
			"blob", info.Name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "archive uploaded",
		"blob", info.Name,
		"codec", info.Codec.String(),
		"payload_bytes", info.PayloadBytes,
		"stored_bytes", info.StoredBytes,
		"blocks", info.Blocks,
	)
}

// LogRestore logs rebuilding a store from an archive.
func (l *Logger) LogRestore(ctx context.Context, blob string, payloadBytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"blob", blob,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "restore completed",
		"blob", blob,
		"payload_bytes", payloadBytes,
	)
}
