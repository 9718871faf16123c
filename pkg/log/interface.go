// Package log provides structured logging for tabtune workflows.
//
// The package defines a minimal, slog-compatible Logger interface plus a
// default slog-backed provider. Keeping the interface small lets tests swap
// in a capturing logger (see TestLogger) without touching workflow code.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("tune").With(
//	    log.FamilyKey, "random-forest",
//	)
//	logger.Info("training started",
//	    log.OperationKey, "fit",
//	    log.SamplesKey, 354,
//	    log.FeaturesKey, 13,
//	)
package log

import (
	"context"
)

// Logger is a structured logging interface compatible with Go's log/slog.
// Fields are alternating key/value pairs, as in slog.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs conditions that deserve attention but are not failures.
	Warn(msg string, fields ...any)

	// Error logs failures.
	Error(msg string, fields ...any)

	// With returns a logger whose entries carry the given fields.
	With(fields ...any) Logger

	// Enabled reports whether entries at the given level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, value-compatible with slog.Level.
type Level int

// Standard logging levels.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers. The default provider is
// slog-backed; tests install a TestLoggerProvider instead.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for loggers from this provider.
	SetLevel(level Level)
}
