package observability

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"finitefield.org/catalog-editor/internal/platform/requestctx"
)

func TestNewLoggerLevels(t *testing.T) {
	logger, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level enabled")
	}

	fallback, err := NewLogger("loud")
	if err != nil {
		t.Fatalf("new logger with invalid level: %v", err)
	}
	if fallback.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected fallback to info level")
	}
	if !fallback.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("expected info level enabled")
	}
}

func TestFromContextAddsSessionID(t *testing.T) {
	ctx := WithLogger(context.Background(), zap.NewNop())
	ctx = requestctx.WithSessionID(ctx, "sess-9")
	if FromContext(ctx) == nil {
		t.Fatalf("expected logger")
	}
}

func TestPhaseSpanLifecycle(t *testing.T) {
	ctx, span := StartPhase(context.Background(), "parent")
	if ctx == nil || span == nil {
		t.Fatalf("expected context and span")
	}
	EndPhase(span, errors.New("boom"))
	EndPhase(nil, nil)
}
