// Package log provides the structured logging interface used across freightml.
//
// The interface is deliberately small and slog-shaped so that packages depend
// on Logger rather than on a concrete backend. The production implementation
// is backed by zerolog (see Setup); tests use TestLogger.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ModelNameKey, "xgboost_amount_model",
//	    log.ComponentKey, "probe",
//	)
//	logger.Info("prediction finished",
//	    log.OperationKey, log.OperationPredict,
//	    log.FeaturesKey, 772,
//	)
package log

import (
	"context"
	"strings"

	"github.com/YuminosukeSato/freightml/pkg/errors"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key/value pairs. For Error, an error value
// in the first position is treated as the cause and logged with its stack.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs a situation that does not stop the run.
	Warn(msg string, fields ...any)

	// Error logs a failure. If the first field is an error it is attached
	// as the cause.
	//
	// Example:
	//   logger.Error("model load failed",
	//       err,
	//       log.ModelPathKey, path,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug    Level = -4 // Detailed diagnostic information
	LevelInfo     Level = 0  // General operational information
	LevelWarn     Level = 4  // Warning conditions
	LevelError    Level = 8  // Error conditions
	LevelDisabled Level = 16 // Nothing is emitted
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
	case LevelDisabled:
		return "DISABLED"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "disabled", "off", "none":
		return LevelDisabled, nil
	default:
		return LevelInfo, errors.NewValidationError("log_level", "unknown log level", s)
	}
}
