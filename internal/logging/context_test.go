package logging

import (
	"context"
	"testing"
)

func TestRunIDRoundTrip(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-42")
	if got := RunIDFromContext(ctx); got != "run-42" {
		t.Fatalf("RunIDFromContext() = %q, want run-42", got)
	}
}

func TestRunIDAbsentByDefault(t *testing.T) {
	if got := RunIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty run id, got %q", got)
	}
}

func TestContextFieldsIncludesRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-7")
	fields := ContextFields(ctx)
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
}

func TestFromContextReturnsNopWhenUnset(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("expected a non-nil fallback logger")
	}
	// Should not panic when logging through the fallback.
	logger.Info(context.Background(), "no logger in context")
}

func TestWithLoggerRoundTrip(t *testing.T) {
	cfg := NewDefaultConfig()
	logger, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	ctx := WithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatal("expected FromContext to return the stored logger")
	}
}
