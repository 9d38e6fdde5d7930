package logging

import (
	"context"

	"go.uber.org/zap"
)

type runIDCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields extracts correlation fields to attach to every entry
// logged through a context-aware method.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 1)
	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	return fields
}

// RunIDFromContext extracts the sync-run correlation id, if any.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRunID attaches a sync-run correlation id so every log line emitted
// during that run, across adapters and the orchestrator, can be grepped
// together.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDCtxKey{}, runID)
}

// WithLogger stores logger in ctx for retrieval by FromContext.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves the logger stored by WithLogger, or a no-op logger
// if none was stored (e.g. in a unit test that never wired one in).
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
