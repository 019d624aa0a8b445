// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sort"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetLogger points the package loggers at l, typically the request-context aware
// logger built by the middleware package.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = &Logger{Logger: l}
	}
}

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableRepoLogging       bool
	EnableTransitionLogging bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableRepoLogging:       true,
	EnableTransitionLogging: true,
}

// fieldAttrs turns a field map into slog attributes in key order so log lines are stable.
func fieldAttrs(fields map[string]interface{}) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]any, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return attrs
}

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

func (l *RepoLogger) log(ctx context.Context, operation string, fields map[string]interface{}) {
	if !Config.EnableRepoLogging {
		return
	}
	attrs := []any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}
	attrs = append(attrs, fieldAttrs(fields)...)
	GlobalLogger.InfoContext(ctx, "repository "+operation, attrs...)
}

// LogCreate logs a repository create operation.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, "create", fields)
}

// LogUpdate logs a repository update operation.
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, "update", fields)
}

// LogDelete logs a repository delete operation.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]interface{}) {
	l.log(ctx, "delete", fields)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	if !Config.EnableRepoLogging {
		return
	}
	GlobalLogger.ErrorContext(ctx, "repository error",
		slog.String("table", l.tableName),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// TransitionOutcome labels the result of an attempted workflow transition.
type TransitionOutcome string

const (
	OutcomeApplied   TransitionOutcome = "applied"
	OutcomeForbidden TransitionOutcome = "forbidden"
	OutcomeNoRule    TransitionOutcome = "no_rule"
	OutcomeInvalid   TransitionOutcome = "invalid"
	OutcomeConflict  TransitionOutcome = "conflict"
	OutcomeNotFound  TransitionOutcome = "not_found"
	OutcomeError     TransitionOutcome = "error"
)

// LogTransition records one attempted transition.
func LogTransition(ctx context.Context, requestID uint, action, from, to string, outcome TransitionOutcome, err error) {
	if !Config.EnableTransitionLogging {
		return
	}
	attrs := []any{
		slog.Uint64("request_id", uint64(requestID)),
		slog.String("action", action),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("outcome", string(outcome)),
	}
	switch {
	case outcome == OutcomeApplied:
		GlobalLogger.InfoContext(ctx, "request transitioned", attrs...)
	case outcome == OutcomeError:
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		GlobalLogger.ErrorContext(ctx, "request transition failed", attrs...)
	default:
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		GlobalLogger.WarnContext(ctx, "request transition refused", attrs...)
	}
}
